package order

import "time"

// Status represents order lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusExecuted  Status = "EXECUTED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExecuted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal 判断是否是终态（终态不能再转换）。
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Order holds one simulated trade request. Only Status and ExecutedAt are
// mutable, and only through Store.CompareAndSetStatus.
type Order struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Quantity   float64    `json:"quantity"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
}
