package lifescope

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// TaskFunc is the signature of a task launched on a [Scope]. ctx is
// cancelled when the task's job or its scope is cancelled.
type TaskFunc func(ctx context.Context) error

// Scope is a cancellable region of concurrent work. Tasks launched on a
// scope share its context, its [Executor] and its failure [Policy]:
//
//   - Propagate: the first uncaught failure cancels the scope, every
//     sibling task and every child scope.
//   - Supervise: failures are reported to the error handler and kept for
//     [Scope.Wait]; siblings keep running.
//
// [Background] returns the process-wide scope, which is never cancelled.
//
// A Scope is finalized by [Scope.Wait]. Tasks may launch further tasks on
// the scope while it is running; launches after Wait returned produce
// jobs that are already cancelled with [ErrScopeClosed].
type Scope struct {
	name   string
	ctx    context.Context
	cancel context.CancelCauseFunc
	cfg    config
	parent *Scope
	global bool

	tasks tracker
	sem   *Semaphore

	firstErr atomic.Pointer[TaskError]

	errMu         sync.Mutex
	errs          []*TaskError
	droppedErrors int

	cancelOnce sync.Once

	finOnce sync.Once
	finErr  error

	totalSpawned atomic.Int64
	activeTasks  atomic.Int64
}

// New creates a scope whose context derives from parent. The caller
// finalizes it with [Scope.Wait].
func New(parent context.Context, opts ...Option) *Scope {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newScope(parent, cfg, nil)
}

func newScope(parent context.Context, cfg config, owner *Scope) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &Scope{
		name:   cfg.name,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		parent: owner,
	}
	s.tasks.cond = sync.NewCond(&s.tasks.mu)
	if cfg.limit > 0 {
		s.sem = NewSemaphore(cfg.limit)
	}
	return s
}

var background = sync.OnceValue(func() *Scope {
	cfg := defaultConfig()
	cfg.name = "background"
	cfg.policy = Supervise
	s := newScope(context.Background(), cfg, nil)
	s.global = true
	return s
})

// Background returns the process-wide scope. It is not owned by any
// lifetime: Cancel and Wait leave it running and failures are only logged.
// Work launched here outlives every lifetime, so use it sparingly.
func Background() *Scope {
	return background()
}

// Run creates a [Scope], invokes fn with it and then waits for every task
// launched on it. A panic in fn is re-raised after the scope is finalized.
func Run(parent context.Context, fn func(sc *Scope), opts ...Option) (err error) {
	sc := New(parent, opts...)

	defer func() {
		runPanic := recover()
		if runPanic != nil {
			sc.CancelWithCause(newPanicError(runPanic))
		}
		waitErr := sc.Wait()
		if runPanic != nil {
			panic(runPanic)
		}
		err = waitErr
	}()

	fn(sc)
	return nil
}

// Child creates a scope nested in sc. It inherits sc's options, which opts
// may override, and is cancelled together with sc. sc.Wait also waits for
// tasks launched on the child. A failure in a Propagate child also fails
// sc when sc uses Propagate.
func (s *Scope) Child(name string, opts ...Option) *Scope {
	cfg := s.cfg
	cfg.name = name
	for _, opt := range opts {
		opt(&cfg)
	}
	return newScope(s.ctx, cfg, s)
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Policy returns the failure policy.
func (s *Scope) Policy() Policy {
	return s.cfg.policy
}

// Context returns the scope's context. It is cancelled when the scope is
// cancelled, fails under Propagate or is finalized by Wait.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Clock returns the clock configured with [WithClock].
func (s *Scope) Clock() clockz.Clock {
	return s.cfg.clock
}

// Cancel cancels the scope with cause [ErrCancelled]. It implements
// [Cancelable].
func (s *Scope) Cancel() {
	s.CancelWithCause(ErrCancelled)
}

// CancelWithCause cancels the scope and all its tasks with the given cause.
// Only the first cancellation is recorded. It is a no-op on [Background].
func (s *Scope) CancelWithCause(cause error) {
	if s.global {
		return
	}
	if cause == nil {
		cause = ErrCancelled
	}
	s.cancelOnce.Do(func() {
		if s.ctx.Err() != nil {
			return
		}
		s.cancel(cause)
		capitan.Emit(context.Background(), ScopeCancelled,
			KeyScope.Field(s.name),
			KeyError.Field(cause.Error()),
		)
	})
}

// Wait seals the scope, waits for every tracked task (including tasks of
// child scopes) and returns the outcome:
//
//   - Propagate: the first failure as a [*TaskError].
//   - Supervise: all kept failures joined with errors.Join.
//
// Without failures, Wait returns the cancellation cause if the scope was
// cancelled before it was finalized, or nil. Wait is idempotent. On
// [Background] it only waits for the tasks currently running and returns
// nil.
func (s *Scope) Wait() error {
	if s.global {
		s.tasks.wait(false)
		return nil
	}

	s.finOnce.Do(func() {
		s.tasks.wait(true)

		cancelled := s.ctx.Err() != nil

		switch s.cfg.policy {
		case Propagate:
			if te := s.firstErr.Load(); te != nil {
				s.finErr = te
			}
		case Supervise:
			s.errMu.Lock()
			if len(s.errs) > 0 {
				errs := make([]error, 0, len(s.errs))
				for _, te := range s.errs {
					errs = append(errs, te)
				}
				s.finErr = errors.Join(errs...)
			}
			s.errMu.Unlock()
		}

		if s.finErr == nil && cancelled {
			s.finErr = context.Cause(s.ctx)
		}

		s.cancel(ErrScopeClosed)
	})
	return s.finErr
}

// ActiveTasks returns the number of tasks currently executing.
func (s *Scope) ActiveTasks() int64 {
	return s.activeTasks.Load()
}

// TotalSpawned returns the number of tasks launched on the scope,
// including finished ones.
func (s *Scope) TotalSpawned() int64 {
	return s.totalSpawned.Load()
}

// DroppedErrors returns the number of failures not kept because the
// [WithMaxErrors] cap was reached.
func (s *Scope) DroppedErrors() int {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.droppedErrors
}

// track registers a task with s and every ancestor so that each of their
// Wait calls covers it. It fails once any of them is sealed.
func (s *Scope) track() bool {
	for sc := s; sc != nil; sc = sc.parent {
		if !sc.tasks.add() {
			for r := s; r != sc; r = r.parent {
				r.tasks.done()
			}
			return false
		}
	}
	return true
}

func (s *Scope) untrack() {
	for sc := s; sc != nil; sc = sc.parent {
		sc.tasks.done()
	}
}

// fail handles an uncaught task failure according to the policy.
func (s *Scope) fail(te *TaskError, lc launchConfig) {
	capitan.Emit(context.Background(), TaskFailed,
		KeyScope.Field(s.name),
		KeyTask.Field(te.Task.Name),
		KeyError.Field(te.Err.Error()),
	)

	if !lc.async {
		report(s.cfg.handler, s.origin(te.Task.Name), te)
	}
	if lc.detached || s.global {
		return
	}
	if lc.async && s.cfg.policy == Supervise {
		// The failure is delivered through Deferred.Await.
		return
	}
	s.record(te)
}

func (s *Scope) record(te *TaskError) {
	switch s.cfg.policy {
	case Propagate:
		if s.firstErr.CompareAndSwap(nil, te) {
			s.CancelWithCause(te)
			if p := s.parent; p != nil && !p.global && p.cfg.policy == Propagate {
				p.record(te)
			}
		}
	case Supervise:
		s.errMu.Lock()
		if s.cfg.maxErrors > 0 && len(s.errs) >= s.cfg.maxErrors {
			s.droppedErrors++
		} else {
			s.errs = append(s.errs, te)
		}
		s.errMu.Unlock()
	}
}

func (s *Scope) origin(task string) string {
	if s.name == "" {
		return task
	}
	return s.name + "/" + task
}

// tracker counts in-flight tasks. Once sealed it refuses new ones, which
// lets tasks launch siblings while Wait is already blocked.
type tracker struct {
	mu     sync.Mutex
	cond   *sync.Cond
	n      int
	sealed bool
}

func (t *tracker) add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return false
	}
	t.n++
	return true
}

func (t *tracker) done() {
	t.mu.Lock()
	t.n--
	if t.n == 0 {
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

func (t *tracker) wait(seal bool) {
	t.mu.Lock()
	for t.n > 0 {
		t.cond.Wait()
	}
	if seal {
		t.sealed = true
	}
	t.mu.Unlock()
}
