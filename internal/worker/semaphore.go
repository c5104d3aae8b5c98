package worker

import (
	"context"
)

// Semaphore caps how many renders run at once. Waiters give up when
// their context ends, so a disconnected client never takes a slot.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore allows limit holders; limit below 1 means 1
func NewSemaphore(limit int) *Semaphore {
	return &Semaphore{slots: make(chan struct{}, max(limit, 1))}
}

// Acquire waits for a slot or returns ctx.Err()
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot. Releasing more than was acquired panics.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		panic("semaphore: release without acquire")
	}
}

// Do runs fn while holding a slot
func (s *Semaphore) Do(ctx context.Context, fn func() error) error {
	if err := s.Acquire(ctx); err != nil {
		return err
	}
	defer s.Release()
	return fn()
}

func (s *Semaphore) InFlight() int { return len(s.slots) }

func (s *Semaphore) Limit() int { return cap(s.slots) }
