package lifescope

import (
	"sync"
	"sync/atomic"
)

// Cancelable is a resource that can be cancelled. Every Cancelable in this
// module is idempotent: calling Cancel more than once has the same effect as
// calling it once.
type Cancelable interface {
	Cancel()
}

// CancelFunc adapts a plain function to [Cancelable]. The function itself is
// called on every Cancel; wrap it with [CancelOnce] if it is not idempotent.
type CancelFunc func()

// Cancel implements Cancelable.
func (f CancelFunc) Cancel() {
	if f != nil {
		f()
	}
}

type onceCancel struct {
	once sync.Once
	fn   func()
}

func (c *onceCancel) Cancel() {
	c.once.Do(c.fn)
}

// CancelOnce returns a [Cancelable] that runs fn on the first Cancel call only.
func CancelOnce(fn func()) Cancelable {
	if fn == nil {
		fn = func() {}
	}
	return &onceCancel{fn: fn}
}

// Once returns a function that runs fn the first time it is called. Unlike
// sync.Once, concurrent callers that lose the race return immediately instead
// of waiting for fn to finish.
func Once(fn func()) func() {
	var ran atomic.Bool
	return func() {
		if ran.CompareAndSwap(false, true) {
			fn()
		}
	}
}
