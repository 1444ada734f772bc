package lifescope

import (
	"context"
	"errors"
	"time"
)

// LaunchOption configures a single launch.
type LaunchOption func(*launchConfig)

type launchConfig struct {
	detached bool
	async    bool
}

// Detached launches the task outside the scope's cancellation: it keeps
// running when the scope is cancelled or fails, is not awaited by
// [Scope.Wait] and its failure does not affect the scope. The scope's
// executor and error handler are still used.
func Detached() LaunchOption {
	return func(c *launchConfig) {
		c.detached = true
	}
}

// Launch schedules fn on the scope's executor and returns its [Job].
//
// An uncaught error (or panic) of fn is reported to the scope's error
// handler. Under [Propagate] it also cancels the scope.
func (s *Scope) Launch(name string, fn TaskFunc, opts ...LaunchOption) *Job {
	var lc launchConfig
	for _, opt := range opts {
		opt(&lc)
	}
	return s.launch(name, fn, lc)
}

// LaunchAfter launches fn once delay has elapsed on the scope's clock.
// Cancelling the job during the delay prevents fn from running.
func (s *Scope) LaunchAfter(name string, delay time.Duration, fn TaskFunc, opts ...LaunchOption) *Job {
	return s.Launch(name, func(ctx context.Context) error {
		if delay > 0 {
			t := s.cfg.clock.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C():
			case <-ctx.Done():
				return context.Cause(ctx)
			}
		}
		return fn(ctx)
	}, opts...)
}

func (s *Scope) launch(name string, fn TaskFunc, lc launchConfig) *Job {
	info := TaskInfo{Scope: s.name, Name: name}

	parent := s.ctx
	if lc.detached {
		parent = context.WithoutCancel(s.ctx)
	}
	ctx, cancel := context.WithCancelCause(parent)
	j := newJob(info, cancel)

	tracked := !lc.detached
	if tracked && !s.track() {
		j.finish(JobCancelled, ErrScopeClosed)
		return j
	}
	s.totalSpawned.Add(1)

	task := func() {
		if tracked {
			defer s.untrack()
		}
		s.run(ctx, j, fn, lc)
	}
	if err := s.cfg.executor.Execute(task); err != nil {
		te := &TaskError{Task: info, Err: err}
		j.finish(JobFailed, te)
		if tracked {
			s.untrack()
		}
		s.fail(te, lc)
	}
	return j
}

func (s *Scope) run(ctx context.Context, j *Job, fn TaskFunc, lc launchConfig) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx); err != nil {
			j.finish(JobCancelled, err)
			return
		}
		defer s.sem.Release()
	}

	if ctx.Err() != nil || !j.begin() {
		j.finish(JobCancelled, context.Cause(ctx))
		return
	}

	s.activeTasks.Add(1)
	start := s.cfg.clock.Now()
	err := s.exec(ctx, j.info, fn)
	elapsed := s.cfg.clock.Since(start)
	s.activeTasks.Add(-1)

	if s.cfg.onDone != nil {
		s.cfg.onDone(j.info, err, elapsed)
	}

	switch {
	case err == nil:
		j.finish(JobCompleted, nil)
	case isCancellation(ctx, err):
		j.finish(JobCancelled, context.Cause(ctx))
	default:
		te := &TaskError{Task: j.info, Err: err}
		j.finish(JobFailed, te)
		s.fail(te, lc)
	}
}

// exec runs the start hook and fn, converting a panic to a [*PanicError].
func (s *Scope) exec(ctx context.Context, info TaskInfo, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	if s.cfg.onStart != nil {
		s.cfg.onStart(info)
	}
	return fn(ctx)
}

// isCancellation reports whether err is the task unwinding because ctx was
// cancelled. Panics always count as failures.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Cause(ctx))
}
