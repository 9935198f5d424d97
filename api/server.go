// Package api is the boundary layer: HTTP request/response mapping and the
// WebSocket endpoint relaying hub events. It holds no order state of its own;
// everything goes through the engine.
package api

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"trading-sim-go/engine"
	"trading-sim-go/hub"
	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
)

// Config 边界层配置。
type Config struct {
	LatencyMin   time.Duration // 模拟处理延迟下界
	LatencyMax   time.Duration // 模拟处理延迟上界
	WriteTimeout time.Duration // 单次 WS 写超时
}

// Server hosts the REST endpoints and the /ws stream.
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	hub    *hub.Hub
	log    *logger.Logger
	mon    *monitor.Monitor

	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	latMu  sync.RWMutex
	latMin time.Duration
	latMax time.Duration
}

// NewServer wires routes and middleware.
func NewServer(cfg Config, eng *engine.Engine, h *hub.Hub, log *logger.Logger, mon *monitor.Monitor) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	s := &Server{
		echo:         echo.New(),
		engine:       eng,
		hub:          h,
		log:          log,
		mon:          mon,
		writeTimeout: cfg.WriteTimeout,
		latMin:       cfg.LatencyMin,
		latMax:       cfg.LatencyMax,
		upgrader: websocket.Upgrader{
			// 模拟服务，不校验 Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/ws", s.handleWS)

	orders := s.echo.Group("/orders", s.instrument, s.simulateLatency)
	orders.POST("", s.handlePlaceOrder)
	orders.GET("", s.handleListOrders)
	orders.GET("/:id", s.handleGetOrder)
	orders.POST("/:id/execute", s.handleExecuteOrder)
	orders.DELETE("/:id", s.handleCancelOrder)

	return s
}

// Handler returns the HTTP handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown performs a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// SetLatencyBounds 热更新模拟延迟区间。
func (s *Server) SetLatencyBounds(min, max time.Duration) {
	if min < 0 || max < min {
		return
	}
	s.latMu.Lock()
	s.latMin = min
	s.latMax = max
	s.latMu.Unlock()
}

// simulateLatency 在订单路由上模拟真实网络/处理延迟。
func (s *Server) simulateLatency(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if d := s.latency(); d > 0 {
			time.Sleep(d)
		}
		return next(c)
	}
}

func (s *Server) latency() time.Duration {
	s.latMu.RLock()
	min, max := s.latMin, s.latMax
	s.latMu.RUnlock()
	if max <= 0 {
		return 0
	}
	if max == min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// instrument 按路由记录请求数/错误数/延迟。
func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		action := c.Request().Method + " " + c.Path()
		if s.mon != nil {
			s.mon.RecordRESTRequest(action)
		}
		err := next(c)
		if s.mon != nil {
			s.mon.RecordRESTLatency(action, time.Since(start).Seconds())
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				s.mon.RecordRESTError(action)
			}
		}
		return err
	}
}
