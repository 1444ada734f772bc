package lifescope

import (
	"context"
	"sync"
	"sync/atomic"
)

// JobState is the lifecycle state of a [Job].
type JobState int32

const (
	JobPending JobState = iota
	JobRunning
	JobCompleted
	JobFailed
	JobCancelled
)

// String returns the state name.
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the final states.
func (s JobState) Terminal() bool {
	return s >= JobCompleted
}

// Job is the handle of a task launched on a [Scope]. It moves from
// JobPending to JobRunning and ends in exactly one of JobCompleted,
// JobFailed or JobCancelled.
//
// Cancellation is cooperative: Cancel cancels the task's context and the
// task is expected to return at its next blocking operation.
type Job struct {
	info   TaskInfo
	state  atomic.Int32
	cancel context.CancelCauseFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newJob(info TaskInfo, cancel context.CancelCauseFunc) *Job {
	return &Job{
		info:   info,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Name returns the task name.
func (j *Job) Name() string {
	return j.info.Name
}

// Info returns the task's scope and name.
func (j *Job) Info() TaskInfo {
	return j.info
}

// State returns the current state.
func (j *Job) State() JobState {
	return JobState(j.state.Load())
}

// Cancel requests cancellation of the task with cause [ErrCancelled].
// It does not wait for the task to return. Cancelling a finished job has
// no effect.
func (j *Job) Cancel() {
	j.cancel(ErrCancelled)
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns nil while the job is unfinished or if it completed. A failed
// job returns its [*TaskError]; a cancelled job returns the cancellation
// cause.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done and returns the job's
// error, or the context's cause if ctx ended first.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (j *Job) begin() bool {
	return j.state.CompareAndSwap(int32(JobPending), int32(JobRunning))
}

func (j *Job) finish(state JobState, err error) {
	j.once.Do(func() {
		j.err = err
		j.state.Store(int32(state))
		close(j.done)
		j.cancel(context.Canceled)
	})
}
