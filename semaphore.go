package lifescope

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds how many tasks of a scope run at once (see [WithLimit]).
// It can also be used on its own. Acquire gives up when its context is
// cancelled.
type Semaphore struct {
	slots    chan struct{}
	held     atomic.Int64
	capacity int
}

// NewSemaphore creates a semaphore with n slots.
// Panics if n <= 0.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		panic("lifescope: NewSemaphore requires n > 0")
	}
	return &Semaphore{
		slots:    make(chan struct{}, n),
		capacity: n,
	}
}

// Acquire blocks until a slot is free or ctx is done, returning the
// context's cause in the latter case.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		s.held.Add(1)
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// TryAcquire takes a slot if one is free.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		s.held.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot. Panics if more slots are released than acquired.
func (s *Semaphore) Release() {
	if s.held.Add(-1) < 0 {
		s.held.Add(1)
		panic("lifescope: Semaphore.Release called without matching Acquire")
	}
	<-s.slots
}

// Available returns the number of free slots. The value may be stale by
// the time it is read.
func (s *Semaphore) Available() int {
	return s.capacity - len(s.slots)
}
