package lifescope

import (
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
)

// Policy determines how a [Scope] reacts to a failing task.
type Policy int

const (
	// Propagate cancels the scope, its sibling tasks and its child scopes
	// when the first task fails. [Scope.Wait] returns that first error.
	Propagate Policy = iota

	// Supervise isolates failures: a failing task is reported to the error
	// handler and does not affect its siblings or the scope. [Scope.Wait]
	// returns all uncaught failures joined via errors.Join.
	Supervise
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Propagate:
		return "propagate"
	case Supervise:
		return "supervise"
	default:
		return "unknown"
	}
}

// ParsePolicy maps "propagate" and "supervise" to their [Policy].
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "propagate", "fail-fast":
		return Propagate, true
	case "supervise", "isolate":
		return Supervise, true
	default:
		return Propagate, false
	}
}

// TaskInfo identifies a task. It is passed to the hooks registered via
// [WithOnStart] and [WithOnDone] and carried by [*TaskError].
type TaskInfo struct {
	Scope string
	Name  string
}

type config struct {
	name      string
	policy    Policy
	limit     int
	maxErrors int
	executor  Executor
	clock     clockz.Clock
	handler   ErrorHandler
	onStart   func(TaskInfo)
	onDone    func(TaskInfo, error, time.Duration)
}

// Option configures a [Scope].
type Option func(*config)

func defaultConfig() config {
	return config{
		policy:   Propagate,
		executor: GoExecutor{},
		clock:    clockz.RealClock,
		handler:  DefaultErrorHandler,
	}
}

// WithName names the scope. The name shows up in [TaskInfo], errors and
// signals.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithPolicy sets the failure policy for the scope.
// It panics if p is not a known Policy value.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		switch p {
		case Propagate, Supervise:
			c.policy = p
		default:
			panic("lifescope: invalid policy")
		}
	}
}

// WithLimit sets the maximum number of tasks that execute concurrently
// within the scope. Tasks beyond the limit wait for a slot, giving up if
// they are cancelled while waiting.
//
// A limit of zero (the default) means unlimited concurrency.
// WithLimit panics if n is negative.
func WithLimit(n int) Option {
	return func(c *config) {
		if n < 0 {
			panic("lifescope: limit must be non-negative")
		}
		c.limit = n
	}
}

// WithMaxErrors caps how many failures a [Supervise] scope keeps for
// [Scope.Wait]. Failures beyond the cap are still reported to the error
// handler and counted by [Scope.DroppedErrors]. Zero means no cap.
func WithMaxErrors(n int) Option {
	return func(c *config) {
		if n < 0 {
			panic("lifescope: max errors must be non-negative")
		}
		c.maxErrors = n
	}
}

// WithExecutor sets the executor tasks are dispatched to. The default runs
// each task on its own goroutine.
func WithExecutor(e Executor) Option {
	return func(c *config) {
		if e != nil {
			c.executor = e
		}
	}
}

// WithClock sets the clock used for delays, timeouts and task durations.
// Use clockz.NewFakeClock in tests.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithErrorHandler sets the diagnostic sink for uncaught task errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.handler = h
		}
	}
}

// WithLogger routes uncaught task errors to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithErrorHandler(LogErrors(logger))
}

// WithOnStart registers a hook invoked when each task begins executing.
// The hook runs on the task's goroutine before the task function.
func WithOnStart(fn func(TaskInfo)) Option {
	return func(c *config) {
		c.onStart = fn
	}
}

// WithOnDone registers a hook invoked when each task finishes, with the
// task's error (nil on success) and its duration.
func WithOnDone(fn func(TaskInfo, error, time.Duration)) Option {
	return func(c *config) {
		c.onDone = fn
	}
}
