package buffer

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/baxromumarov/lifescope"
)

// Task collects values emitted from any goroutine and hands them to a
// consumer in batches, one batch per window of delay.
//
// The first window opens at the first Emit and closes delay later;
// arrivals do not extend it. When it closes, everything received in it is
// delivered as one batch and the next window opens where the last one
// closed. Empty windows deliver nothing. Windows that ended while the loop
// was held up are delivered back to back. Values keep their emission order within and across
// batches.
//
// The receiver loop starts on the first Emit and runs on the task's scope
// until Cancel, or until the scope is cancelled. Values not yet delivered at
// that point are discarded unless [WithFlushOnCancel] is set.
//
// Task implements [lifescope.Cancelable], so it can be bound to a lifetime
// with lifetime.Bind.
type Task[T any] struct {
	delay    time.Duration
	consumer func([]T) error
	cfg      config

	queue   *queue[T]
	pending atomic.Int64

	ctx    context.Context
	cancel context.CancelCauseFunc
	state  atomic.Int32
	origin time.Time

	done     chan struct{}
	doneOnce sync.Once
}

const (
	taskIdle int32 = iota
	taskRunning
	taskCancelled
)

// New creates a task delivering batches to consumer every delay. A delay of
// zero or less delivers values as soon as the loop sees them, batching
// only those that arrived together. An error or panic from consumer is
// reported to the error handler and the next window proceeds normally.
//
// Panics if consumer is nil.
func New[T any](delay time.Duration, consumer func(batch []T) error, opts ...Option) *Task[T] {
	if consumer == nil {
		panic("buffer: New requires a consumer")
	}

	cfg := config{
		name:    "buffer",
		handler: lifescope.DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.scope == nil {
		cfg.scope = lifescope.Background()
	}
	if cfg.clock == nil {
		cfg.clock = cfg.scope.Clock()
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &Task[T]{
		delay:    delay,
		consumer: consumer,
		cfg:      cfg,
		queue:    newQueue[T](),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Emit queues v for the next batch. It never blocks and is safe for
// concurrent use. The first call starts the receiver loop. Emit reports
// false, dropping v, once the task has been cancelled.
func (t *Task[T]) Emit(v T) bool {
	if t.ctx.Err() != nil {
		return false
	}
	t.pending.Add(1)
	t.queue.push(v)

	if t.state.CompareAndSwap(taskIdle, taskRunning) {
		t.origin = t.cfg.clock.Now()
		t.start()
		return true
	}
	// Cancel won before any loop started; nothing will deliver v.
	return t.state.Load() != taskCancelled
}

// Cancel stops the receiver loop. No batch is handed to the consumer after
// Cancel returns, except the final one of [WithFlushOnCancel]; a batch
// already being consumed runs to completion. Cancel is idempotent.
func (t *Task[T]) Cancel() {
	t.cancel(lifescope.ErrCancelled)
	if t.state.CompareAndSwap(taskIdle, taskCancelled) {
		t.closeDone()
	}
}

// Done returns a channel closed when the receiver loop has stopped after
// cancellation, or right away when the task is cancelled before any Emit.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Pending returns the number of emitted values not yet delivered. It is
// zero once the task is done.
func (t *Task[T]) Pending() int {
	select {
	case <-t.done:
		return 0
	default:
		return int(t.pending.Load())
	}
}

// Delay returns the window length.
func (t *Task[T]) Delay() time.Duration {
	return t.delay
}

func (t *Task[T]) start() {
	job := t.cfg.scope.Launch(t.cfg.name, t.run)
	go func() {
		<-job.Done()
		// The loop also ends with its scope; later values are dropped.
		t.cancel(lifescope.ErrCancelled)
		t.closeDone()
	}()
}

func (t *Task[T]) closeDone() {
	t.doneOnce.Do(func() {
		t.pending.Store(0)
		close(t.done)
	})
}

func (t *Task[T]) run(jobCtx context.Context) error {
	ctx, cancel := context.WithCancelCause(jobCtx)
	defer cancel(nil)
	stop := context.AfterFunc(t.ctx, func() {
		cancel(context.Cause(t.ctx))
	})
	defer stop()

	capitan.Emit(context.Background(), lifescope.BufferStarted,
		lifescope.KeyTask.Field(t.cfg.name),
		lifescope.KeyDelay.Field(t.delay),
	)

	var buf []T
	start := t.origin
	for t.collect(ctx, start, &buf) {
		// Cancel reaches ctx through AfterFunc, so check t.ctx as well.
		if ctx.Err() != nil || t.ctx.Err() != nil {
			break
		}
		next := t.nextWindow(start, t.cfg.clock.Now())
		t.flush(&buf)
		start = next
	}

	if t.cfg.flushOnCancel {
		t.queue.drainInto(&buf)
		t.flush(&buf)
	}

	capitan.Emit(context.Background(), lifescope.BufferStopped,
		lifescope.KeyTask.Field(t.cfg.name),
	)

	if jobCtx.Err() != nil && t.ctx.Err() == nil {
		return context.Cause(jobCtx)
	}
	return nil
}

// collect gathers values into buf until the window that opened at start
// closes. It reports false when ctx ended first.
func (t *Task[T]) collect(ctx context.Context, start time.Time, buf *[]T) bool {
	if t.delay <= 0 {
		for len(*buf) == 0 {
			select {
			case <-t.queue.ready():
				t.queue.drainInto(buf)
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	remaining := t.delay - t.cfg.clock.Since(start)
	if remaining <= 0 {
		t.queue.drainInto(buf)
		return true
	}

	timer := t.cfg.clock.NewTimer(remaining)
	defer timer.Stop()
	for {
		select {
		case <-t.queue.ready():
			t.queue.drainInto(buf)
		case <-timer.C():
			t.queue.drainInto(buf)
			return true
		case <-ctx.Done():
			return false
		}
	}
}

// nextWindow returns the start of the window following the one that
// opened at start, skipping windows already over at now.
func (t *Task[T]) nextWindow(start, now time.Time) time.Time {
	if t.delay <= 0 {
		return start
	}
	n := now.Sub(start) / t.delay
	if n < 1 {
		n = 1
	}
	return start.Add(n * t.delay)
}

// flush hands a copy of buf to the consumer and empties buf.
func (t *Task[T]) flush(buf *[]T) {
	if len(*buf) == 0 {
		return
	}
	batch := slices.Clone(*buf)
	clear(*buf)
	*buf = (*buf)[:0]

	lifescope.Protect(t.cfg.handler, t.cfg.name+" consumer", func() error {
		return t.consumer(batch)
	})
	t.pending.Add(-int64(len(batch)))

	capitan.Emit(context.Background(), lifescope.BufferFlushed,
		lifescope.KeyTask.Field(t.cfg.name),
		lifescope.KeyBatchSize.Field(len(batch)),
	)
}

var _ lifescope.Cancelable = (*Task[int])(nil)
