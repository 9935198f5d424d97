// Package engine owns the order lifecycle: it is the sole writer of order
// status. Every operation reads current state, applies the transition through
// the store's compare-and-set, and broadcasts the committed change.
package engine

import (
	"errors"
	"fmt"
	"time"

	"trading-sim-go/hub"
	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
	"trading-sim-go/order"
)

// ErrInvalidTransition 订单存在但不处于 PENDING，无法执行请求的转换。
// 内部 compare-and-set 的竞争失败也归入此类。
var ErrInvalidTransition = errors.New("invalid order transition")

// InvalidTransitionError carries the status observed when the transition was
// rejected, so the boundary can report it. Unwraps to ErrInvalidTransition.
type InvalidTransitionError struct {
	OrderID string
	Current order.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s is %s, only PENDING orders can transition", e.OrderID, e.Current)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// Notifier receives one event per committed transition.
type Notifier interface {
	Broadcast(ev hub.Event)
}

// Trigger schedules the deferred auto-execute attempt for a new order.
type Trigger interface {
	Schedule(orderID string)
}

// Engine validates and applies order state transitions.
type Engine struct {
	store   *order.Store
	hub     Notifier
	trigger Trigger
	log     *logger.Logger
	mon     *monitor.Monitor
}

// Components 引擎依赖组件。
type Components struct {
	Store    *order.Store
	Notifier Notifier
	Trigger  Trigger
	Logger   *logger.Logger
	Monitor  *monitor.Monitor
}

// New wires an Engine. Store, Notifier and Trigger are required.
func New(c Components) (*Engine, error) {
	if c.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if c.Notifier == nil {
		return nil, errors.New("engine: notifier is required")
	}
	if c.Trigger == nil {
		return nil, errors.New("engine: trigger is required")
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
	return &Engine{
		store:   c.Store,
		hub:     c.Notifier,
		trigger: c.Trigger,
		log:     c.Logger,
		mon:     c.Monitor,
	}, nil
}

// Submit creates a PENDING order, broadcasts the creation event and arms the
// auto-execute timer. Never blocks on the timer.
func (e *Engine) Submit(symbol string, quantity float64) order.Order {
	o := e.store.Create(symbol, quantity)

	e.log.LogOrder("order_submitted", o.ID, map[string]interface{}{
		"symbol":   o.Symbol,
		"quantity": o.Quantity,
		"status":   string(o.Status),
	})
	if e.mon != nil {
		e.mon.RecordOrderPlaced()
	}

	// 先广播创建事件再排期，保证同一订单的事件顺序。
	e.hub.Broadcast(hub.NewEvent(hub.KindCreated, o, o.CreatedAt))
	e.trigger.Schedule(o.ID)
	return o
}

// Cancel attempts PENDING → CANCELLED.
func (e *Engine) Cancel(id string) (order.Order, error) {
	return e.transition(id, order.StatusCancelled)
}

// Execute attempts PENDING → EXECUTED. Same compare-and-set target as the
// scheduler-driven path.
func (e *Engine) Execute(id string) (order.Order, error) {
	return e.transition(id, order.StatusExecuted)
}

// AutoExecute is the scheduler's attempt callback. Losing the race to a
// manual transition is expected and only logged.
func (e *Engine) AutoExecute(id string) {
	o, err := e.Execute(id)
	if err != nil {
		e.log.Debug(fmt.Sprintf("auto-execute skipped for %s: %v", id, err))
		return
	}
	e.log.LogOrder("order_auto_executed", o.ID, map[string]interface{}{
		"symbol": o.Symbol,
		"status": string(o.Status),
	})
}

// Get returns the current snapshot of one order.
func (e *Engine) Get(id string) (order.Order, error) {
	return e.store.Get(id)
}

// List returns a snapshot of all orders.
func (e *Engine) List() []order.Order {
	return e.store.List()
}

// transition applies PENDING → target and resolves every race locally:
// the caller gets either the committed order or a definitive typed error.
func (e *Engine) transition(id string, target order.Status) (order.Order, error) {
	now := time.Now().UTC()
	o, err := e.store.CompareAndSetStatus(id, order.StatusPending, target, now)
	switch {
	case err == nil:
	case errors.Is(err, order.ErrNotFound):
		return order.Order{}, order.ErrNotFound
	case errors.Is(err, order.ErrConflict):
		// o 是竞争获胜方落盘后的快照
		if e.mon != nil {
			e.mon.RecordTransitionConflict()
		}
		return order.Order{}, &InvalidTransitionError{OrderID: id, Current: o.Status}
	default:
		return order.Order{}, err
	}

	event := "order_cancelled"
	if target == order.StatusExecuted {
		event = "order_executed"
	}
	e.log.LogOrder(event, o.ID, map[string]interface{}{
		"symbol": o.Symbol,
		"status": string(o.Status),
	})
	if e.mon != nil {
		if target == order.StatusExecuted {
			e.mon.RecordOrderExecuted()
		} else {
			e.mon.RecordOrderCancelled()
		}
	}

	e.hub.Broadcast(hub.NewEvent(hub.KindStatusChange, o, now))
	return o, nil
}
