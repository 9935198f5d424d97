package hub

import (
	"time"

	"trading-sim-go/order"
)

// Kind classifies a broadcast event.
type Kind string

const (
	// KindCreated 订单创建（状态为 PENDING）。
	KindCreated Kind = "created"
	// KindStatusChange 订单进入终态。
	KindStatusChange Kind = "status_change"
)

// Event is one status-change notification pushed to every subscriber.
type Event struct {
	Kind      Kind         `json:"kind"`
	OrderID   string       `json:"orderId"`
	Status    order.Status `json:"status"`
	Symbol    string       `json:"symbol"`
	Quantity  float64      `json:"quantity"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewEvent builds the event for a committed transition (or creation) of o.
func NewEvent(kind Kind, o order.Order, ts time.Time) Event {
	return Event{
		Kind:      kind,
		OrderID:   o.ID,
		Status:    o.Status,
		Symbol:    o.Symbol,
		Quantity:  o.Quantity,
		Timestamp: ts,
	}
}
