package lifescope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned by [Pool.Execute] when the pool has been closed.
var ErrPoolClosed = errors.New("lifescope: pool is closed")

// Pool is a fixed-size worker pool implementing [Executor]. Scopes created
// with WithExecutor(pool) dispatch their tasks to its workers instead of
// starting a goroutine per task.
type Pool struct {
	name   string
	tasks  chan func()
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// closeMu orders Close against in-flight Execute calls so the tasks
	// channel is never closed under a sender.
	closeMu sync.RWMutex

	handler ErrorHandler

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	inFlight  atomic.Int64
	workers   int
}

// PoolStats provides a point-in-time snapshot of pool activity.
type PoolStats struct {
	Submitted  int64 // total tasks accepted
	Completed  int64 // tasks finished
	Panicked   int64 // tasks that panicked outside any scope
	InFlight   int64 // tasks currently executing
	QueueDepth int   // tasks waiting in the queue
	Workers    int   // worker count (fixed at creation)
}

// PoolOption configures a [Pool].
type PoolOption func(*poolConfig)

type poolConfig struct {
	name            string
	queueSize       int
	handler         ErrorHandler
	onMetrics       func(PoolStats)
	metricsInterval time.Duration
}

// WithQueueSize sets the task queue buffer size. Default is n * 2.
func WithQueueSize(size int) PoolOption {
	return func(c *poolConfig) {
		if size < 0 {
			panic("lifescope: WithQueueSize requires non-negative size")
		}
		c.queueSize = size
	}
}

// WithPoolName names the pool in error reports.
func WithPoolName(name string) PoolOption {
	return func(c *poolConfig) {
		c.name = name
	}
}

// WithPoolErrorHandler sets where panics escaping raw pool tasks are sent.
// Tasks dispatched by a scope recover their own panics and never reach it.
func WithPoolErrorHandler(h ErrorHandler) PoolOption {
	return func(c *poolConfig) {
		c.handler = h
	}
}

// WithPoolMetrics registers a periodic metrics callback fired every
// interval with a snapshot of the pool counters.
//
// Panics if interval <= 0 or fn is nil.
func WithPoolMetrics(interval time.Duration, fn func(PoolStats)) PoolOption {
	if interval <= 0 {
		panic("lifescope: WithPoolMetrics requires interval > 0")
	}
	if fn == nil {
		panic("lifescope: WithPoolMetrics requires non-nil callback")
	}
	return func(c *poolConfig) {
		c.onMetrics = fn
		c.metricsInterval = interval
	}
}

// NewPool creates a pool with n worker goroutines. Workers run until
// [Pool.Close] is called or ctx is cancelled.
// Panics if n <= 0.
func NewPool(ctx context.Context, n int, opts ...PoolOption) *Pool {
	if n <= 0 {
		panic("lifescope: NewPool requires n > 0")
	}

	cfg := poolConfig{
		name:      "pool",
		queueSize: n * 2,
		handler:   DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		name:    cfg.name,
		tasks:   make(chan func(), cfg.queueSize),
		ctx:     ctx,
		cancel:  cancel,
		handler: cfg.handler,
		workers: n,
	}

	p.wg.Add(n)
	for i := range n {
		go p.worker(i)
	}

	if cfg.onMetrics != nil {
		go func() {
			ticker := time.NewTicker(cfg.metricsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if p.closed.Load() {
						return
					}
					cfg.onMetrics(p.Stats())
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	origin := fmt.Sprintf("%s-worker-%d", p.name, id+1)
	for fn := range p.tasks {
		p.runTask(origin, fn)
	}
}

func (p *Pool) runTask(origin string, fn func()) {
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.completed.Add(1)
	}()

	Protect(p.handler, origin, func() error {
		defer func() {
			if r := recover(); r != nil {
				p.panicked.Add(1)
				panic(r)
			}
		}()
		fn()
		return nil
	})
}

// Stats returns a point-in-time snapshot of pool activity.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Panicked:   p.panicked.Load(),
		InFlight:   p.inFlight.Load(),
		QueueDepth: len(p.tasks),
		Workers:    p.workers,
	}
}

// Execute queues task, blocking while the queue is full.
// Returns [ErrPoolClosed] once the pool is closed, or the pool context's
// error if it was cancelled.
func (p *Pool) Execute(task func()) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-p.ctx.Done():
		if p.closed.Load() {
			return ErrPoolClosed
		}
		return p.ctx.Err()
	}
}

// TryExecute queues task without blocking.
// Returns false if the queue is full or the pool is closed.
func (p *Pool) TryExecute(task func()) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed.Load() {
		return false
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return true
	default:
		return false
	}
}

// Close stops accepting tasks, lets the workers drain the queue and waits
// for them to exit. Safe to call multiple times.
func (p *Pool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		// Unblock senders waiting on a full queue before taking the lock.
		p.cancel()
		p.closeMu.Lock()
		close(p.tasks)
		p.closeMu.Unlock()
	}
	p.wg.Wait()
}
