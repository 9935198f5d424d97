// Package scheduler fires one deferred auto-execute attempt per submitted
// order. The timer is never cancelled: when a manual transition wins the
// race first, the attempt simply loses at the store's compare-and-set.
package scheduler

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"trading-sim-go/infrastructure/logger"
)

// AttemptFunc 定时到期后对订单发起的唯一一次执行尝试。
type AttemptFunc func(orderID string)

var ErrInvalidBounds = errors.New("scheduler: invalid delay bounds")

// Scheduler schedules exactly one attempt per order id, after a delay drawn
// uniformly from [min, max].
type Scheduler struct {
	mu      sync.RWMutex
	min     time.Duration
	max     time.Duration
	attempt AttemptFunc

	log *logger.Logger
}

// New creates a Scheduler with the given delay bounds.
func New(min, max time.Duration, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scheduler{log: log}
	if err := s.SetDelayBounds(min, max); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind sets the attempt callback. Must be called before the first Schedule;
// kept separate from New to break the construction cycle with the engine.
func (s *Scheduler) Bind(fn AttemptFunc) {
	s.mu.Lock()
	s.attempt = fn
	s.mu.Unlock()
}

// SetDelayBounds 原子地更新延迟区间，对已排期的定时器不生效。
func (s *Scheduler) SetDelayBounds(min, max time.Duration) error {
	if min <= 0 || max < min {
		return ErrInvalidBounds
	}
	s.mu.Lock()
	s.min = min
	s.max = max
	s.mu.Unlock()
	return nil
}

// DelayBounds returns the current bounds.
func (s *Scheduler) DelayBounds() (time.Duration, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.min, s.max
}

// Schedule arms the one-shot timer for orderID and returns immediately.
func (s *Scheduler) Schedule(orderID string) {
	d := s.delay()
	s.log.Debug("auto-execute scheduled",
		zap.String("order_id", orderID),
		zap.Duration("delay", d))

	time.AfterFunc(d, func() {
		s.mu.RLock()
		fn := s.attempt
		s.mu.RUnlock()
		if fn != nil {
			fn(orderID)
		}
	})
}

func (s *Scheduler) delay() time.Duration {
	s.mu.RLock()
	min, max := s.min, s.max
	s.mu.RUnlock()
	if max == min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
