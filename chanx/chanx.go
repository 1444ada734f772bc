package chanx

import "context"

// Send sends v to ch, unblocking early if ctx is done.
// It returns nil on a successful send, or the context's cause.
func Send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Recv receives a value from ch, unblocking early if ctx is done.
// It returns the value, whether the channel is still open (false means ch
// was closed) and the context's cause if ctx ended first.
func Recv[T any](ctx context.Context, ch <-chan T) (T, bool, error) {
	select {
	case v, ok := <-ch:
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, context.Cause(ctx)
	}
}
