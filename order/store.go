package order

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store 维护订单状态，是订单记录的唯一持有者。
// 所有状态变更都经过 CompareAndSetStatus，单把锁保证每个订单的变更线性化。
type Store struct {
	mu     sync.RWMutex
	orders map[string]*Order
	ids    []string // 保留插入顺序，供 List 使用
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		orders: make(map[string]*Order),
	}
}

// Create allocates a fresh id and stores a PENDING record.
func (s *Store) Create(symbol string, quantity float64) Order {
	o := &Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Quantity:  quantity,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.orders[o.ID] = o
	s.ids = append(s.ids, o.ID)
	s.mu.Unlock()
	return snapshot(o)
}

// Get returns a point-in-time copy of the order, or ErrNotFound.
func (s *Store) Get(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return snapshot(o), nil
}

// List returns a point-in-time snapshot of all orders in insertion order.
func (s *Store) List() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, snapshot(s.orders[id]))
	}
	return out
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// CompareAndSetStatus 唯一的变更原语：仅当当前状态等于 expected 时改为 next。
// 状态不符返回 ErrConflict 且不做任何修改；成功返回变更后的快照。
// next 为 EXECUTED 时以 ts 记录 ExecutedAt。
func (s *Store) CompareAndSetStatus(id string, expected, next Status, ts time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status != expected {
		return snapshot(o), ErrConflict
	}
	o.Status = next
	if next == StatusExecuted {
		t := ts
		o.ExecutedAt = &t
	}
	return snapshot(o), nil
}

// snapshot 复制订单，读者永远看不到中间状态。
func snapshot(o *Order) Order {
	out := *o
	if o.ExecutedAt != nil {
		t := *o.ExecutedAt
		out.ExecutedAt = &t
	}
	return out
}
