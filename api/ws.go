package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"trading-sim-go/hub"
	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
	"trading-sim-go/order"
)

// ordersUpdate 响应 "get_orders" 探测的全量快照。
type ordersUpdate struct {
	Type string        `json:"type"`
	Data []order.Order `json:"data"`
}

// wsClient couples one websocket connection to one hub subscription.
// Writes come from two goroutines (event pump and probe replies), so every
// write goes through the mutex and carries a deadline.
type wsClient struct {
	conn *websocket.Conn
	sub  *hub.Subscription
	hub  *hub.Hub

	writeMu      sync.Mutex
	writeTimeout time.Duration

	log *logger.Logger
	mon *monitor.Monitor

	closeOnce sync.Once
}

// handleWS upgrades the connection, registers it with the hub and runs the
// read loop until disconnect.
func (s *Server) handleWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade 已写入错误响应
		return nil
	}
	if s.mon != nil {
		s.mon.RecordWSConnection()
	}
	s.log.Info("websocket connected", zap.String("remote", conn.RemoteAddr().String()))

	client := &wsClient{
		conn:         conn,
		sub:          s.hub.Register(),
		hub:          s.hub,
		writeTimeout: s.writeTimeout,
		log:          s.log,
		mon:          s.mon,
	}

	go client.writePump()
	client.readPump(s.engine.List)
	return nil
}

// writePump relays hub events to the socket. Ends when the subscription is
// closed (unregistered or evicted) or a write fails.
func (c *wsClient) writePump() {
	for ev := range c.sub.C {
		if err := c.writeJSON(ev); err != nil {
			c.log.Warn("websocket send failed", zap.Error(err))
			break
		}
	}
	c.close()
}

// readPump handles inbound probe messages until the peer disconnects.
// snapshot 提供当前订单快照，仅回给本连接。
func (c *wsClient) readPump(snapshot func() []order.Order) {
	defer c.close()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		switch string(msg) {
		case "ping":
			if err := c.writeText("pong"); err != nil {
				return
			}
		case "get_orders":
			if err := c.writeJSON(ordersUpdate{Type: "orders_update", Data: snapshot()}); err != nil {
				return
			}
		default:
			c.log.Debug("websocket message ignored", zap.ByteString("payload", msg))
		}
	}
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writeText(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// close tears the connection down exactly once; safe from both pumps.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c.sub)
		_ = c.conn.Close()
		if c.mon != nil {
			c.mon.RecordWSDisconnect()
		}
		c.log.Info("websocket disconnected")
	})
}
