package lifescope

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Deferred is the future-like handle returned by [Async]. It yields the
// task's value once the task completes.
type Deferred[T any] struct {
	job   *Job
	val   T
	clock clockz.Clock
}

// Async launches fn on sc and returns a [Deferred] for its result.
//
// The failure of fn is delivered through [Deferred.Await] rather than the
// error handler. Under [Propagate] it still cancels sc.
//
//	d := lifescope.Async(sc, "load", func(ctx context.Context) (User, error) {
//	    return repo.Load(ctx, id)
//	})
//	u, err := d.Await(ctx)
func Async[T any](sc *Scope, name string, fn func(ctx context.Context) (T, error), opts ...LaunchOption) *Deferred[T] {
	lc := launchConfig{async: true}
	for _, opt := range opts {
		opt(&lc)
	}

	d := &Deferred[T]{clock: sc.cfg.clock}
	d.job = sc.launch(name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		// Published to readers by the close of the job's done channel.
		d.val = v
		return nil
	}, lc)
	return d
}

// Job returns the underlying job.
func (d *Deferred[T]) Job() *Job {
	return d.job
}

// Cancel cancels the task. It implements [Cancelable].
func (d *Deferred[T]) Cancel() {
	d.job.Cancel()
}

// Done returns a channel closed when the task has finished.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.job.Done()
}

// Await blocks until the task finishes or ctx is done. It returns the value
// on success, the task's error on failure or cancellation, and the
// context's cause if ctx ended first.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if err := d.job.Wait(ctx); err != nil {
		return zero, err
	}
	select {
	case <-d.job.Done():
		return d.val, nil
	default:
		return zero, context.Cause(ctx)
	}
}

// AwaitOption configures [Deferred.AwaitOrNull].
type AwaitOption func(*awaitConfig)

type awaitConfig struct {
	timeout time.Duration
	finally func()
}

// AwaitTimeout bounds how long AwaitOrNull waits. Zero or negative means
// no bound. The task itself keeps running when the timeout fires.
func AwaitTimeout(d time.Duration) AwaitOption {
	return func(c *awaitConfig) {
		c.timeout = d
	}
}

// AwaitFinally registers fn to run when AwaitOrNull returns, whatever the
// outcome.
func AwaitFinally(fn func()) AwaitOption {
	return func(c *awaitConfig) {
		c.finally = fn
	}
}

// AwaitOrNull waits like Await but reports any failure, cancellation or
// timeout as (zero, false) instead of an error.
func (d *Deferred[T]) AwaitOrNull(ctx context.Context, opts ...AwaitOption) (T, bool) {
	var cfg awaitConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.finally != nil {
		defer cfg.finally()
	}

	var zero T
	var timeout <-chan time.Time
	if cfg.timeout > 0 {
		t := d.clock.NewTimer(cfg.timeout)
		defer t.Stop()
		timeout = t.C()
	}

	select {
	case <-d.job.Done():
		if d.job.Err() != nil {
			return zero, false
		}
		return d.val, true
	case <-timeout:
		return zero, false
	case <-ctx.Done():
		return zero, false
	}
}
