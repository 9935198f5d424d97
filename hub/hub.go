// Package hub fans order status events out to any number of live
// subscribers. Delivery to each subscriber is independent: a slow or dead
// subscriber gets evicted without delaying the others.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
)

// DefaultSendBuffer 每个订阅者的事件缓冲大小。
const DefaultSendBuffer = 64

// Subscription is one registered observer. Consume events from C; the
// channel is closed when the subscription is unregistered or evicted.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	closed bool // guarded by the hub mutex
}

// Hub maintains the subscriber registry and broadcasts events.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int

	log *logger.Logger
	mon *monitor.Monitor
}

// New creates a Hub. bufferSize <= 0 falls back to DefaultSendBuffer.
func New(bufferSize int, log *logger.Logger, mon *monitor.Monitor) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: bufferSize,
		log:    log,
		mon:    mon,
	}
}

// Register adds a new subscriber. No replay: the subscriber only sees
// events broadcast after this call returns.
func (h *Hub) Register() *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	if h.mon != nil {
		h.mon.SetSubscribers(n)
	}
	h.log.Debug("subscriber registered", zap.Int("subscribers", n))
	return sub
}

// Unregister removes a subscriber and closes its channel. Idempotent.
func (h *Hub) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	// 关闭必须持有写锁，与 Broadcast 的读锁互斥，避免向已关闭通道发送。
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		if h.mon != nil {
			h.mon.SetSubscribers(n)
		}
		h.log.Debug("subscriber unregistered", zap.Int("subscribers", n))
	}
}

// Len returns the current number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to every registered subscriber. Enqueue is
// non-blocking: a subscriber whose buffer is full is evicted, the rest are
// unaffected. Called synchronously from the engine commit path, so events
// for one order are enqueued in commit order.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	var evicted []*Subscription
	for sub := range h.subs {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			evicted = append(evicted, sub)
		}
	}
	h.mu.RUnlock()

	if h.mon != nil {
		h.mon.RecordEventBroadcast()
	}

	for _, sub := range evicted {
		h.Unregister(sub)
		if h.mon != nil {
			h.mon.RecordSubscriberEviction()
		}
		h.log.Warn("slow subscriber evicted",
			zap.String("order_id", ev.OrderID),
			zap.String("kind", string(ev.Kind)))
	}
}
