package chanx

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned when sending on a closed [Closable].
	ErrClosed = errors.New("chanx: send on closed channel")

	// ErrBuffFull is returned by [Closable.TrySend] when the buffer is full.
	ErrBuffFull = errors.New("chanx: buffer is full")
)

// Closable wraps a channel with idempotent close and panic-free send.
//
// A plain channel panics on double close and on send after close.
// Closable turns both into errors, so producers may keep offering values
// while the consumer is shutting down. Values buffered at Close remain
// readable from [Closable.Chan] until it is drained.
type Closable[T any] struct {
	ch     chan T
	once   sync.Once
	closed chan struct{}

	// Senders hold mu for reading for the whole send, so Close can only
	// close ch once no send is in progress.
	mu       sync.RWMutex
	isClosed bool
}

// NewClosable creates a Closable with the given buffer capacity.
func NewClosable[T any](capacity int) *Closable[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Closable[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Send blocks until v is buffered or received. It returns [ErrClosed] if
// the channel is closed before or during the send.
func (c *Closable[T]) Send(v T) error {
	return c.SendContext(context.Background(), v)
}

// SendContext is Send that also gives up with the context's cause when
// ctx is done.
func (c *Closable[T]) SendContext(ctx context.Context, v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return ErrClosed
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.ch <- v:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// TrySend sends v without blocking. It returns [ErrBuffFull] when no
// buffer slot or receiver is available and [ErrClosed] after Close.
func (c *Closable[T]) TrySend(v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return ErrClosed
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.ch <- v:
		return nil
	default:
		return ErrBuffFull
	}
}

// Close closes the channel. Blocked senders return [ErrClosed]. Safe to
// call multiple times.
func (c *Closable[T]) Close() {
	c.once.Do(func() {
		close(c.closed)

		c.mu.Lock()
		c.isClosed = true
		close(c.ch)
		c.mu.Unlock()
	})
}

// Chan returns the channel for reading. It is closed by [Closable.Close].
func (c *Closable[T]) Chan() <-chan T {
	return c.ch
}

// Done returns a channel closed when [Closable.Close] is called.
func (c *Closable[T]) Done() <-chan struct{} {
	return c.closed
}

// Closed reports whether Close has been called.
func (c *Closable[T]) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Len returns the number of buffered values, or 0 once closed.
func (c *Closable[T]) Len() int {
	if c.Closed() {
		return 0
	}
	return len(c.ch)
}
