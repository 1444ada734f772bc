package lifescope

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the cause recorded when a job, deferred or scope is
	// cancelled through its Cancel method.
	ErrCancelled = errors.New("lifescope: cancelled")

	// ErrScopeClosed is the cause of jobs launched on a scope that has
	// already been finalized by Wait.
	ErrScopeClosed = errors.New("lifescope: scope is closed")
)

// TaskError wraps an error together with the [TaskInfo] of the task that
// produced it, so failures can be attributed to a scope and a task.
type TaskError struct {
	Task TaskInfo
	Err  error
}

func (e *TaskError) Error() string {
	if e.Task.Scope != "" {
		return fmt.Sprintf("task %q in scope %q failed: %v", e.Task.Name, e.Task.Scope, e.Err)
	}
	return fmt.Sprintf("task %q failed: %v", e.Task.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err (or any error in its chain) is a [*TaskError].
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}

// TaskOf extracts the [TaskInfo] from the first [*TaskError] in err's chain.
func TaskOf(err error) (TaskInfo, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Task, true
	}
	return TaskInfo{}, false
}

// CauseOf returns the error wrapped by the first [*TaskError] in err's
// chain, or err itself when there is none.
func CauseOf(err error) error {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}

// AllTaskErrors collects every [*TaskError] reachable from err, including
// errors joined with errors.Join. It does not descend into a TaskError.
func AllTaskErrors(err error) []*TaskError {
	if err == nil {
		return nil
	}
	var out []*TaskError
	collectTaskErrors(err, &out)
	return out
}

func collectTaskErrors(err error, out *[]*TaskError) {
	switch e := err.(type) {
	case *TaskError:
		*out = append(*out, e)
	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectTaskErrors(sub, out)
		}
	case interface{ Unwrap() error }:
		if inner := e.Unwrap(); inner != nil {
			collectTaskErrors(inner, out)
		}
	}
}
