package order

import "errors"

var (
	// ErrNotFound 订单不存在。
	ErrNotFound = errors.New("order not found")

	// ErrConflict is returned by CompareAndSetStatus when the stored status
	// does not match the expected one, i.e. another transition won the race.
	ErrConflict = errors.New("order status conflict")
)
