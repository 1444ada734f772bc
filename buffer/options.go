package buffer

import (
	"github.com/zoobzio/clockz"

	"github.com/baxromumarov/lifescope"
)

// Option configures a [Task].
type Option func(*config)

type config struct {
	name          string
	scope         *lifescope.Scope
	clock         clockz.Clock
	handler       lifescope.ErrorHandler
	flushOnCancel bool
}

// WithScope runs the receiver loop as a task of sc, so cancelling sc stops
// the loop. The default is [lifescope.Background].
func WithScope(sc *lifescope.Scope) Option {
	return func(c *config) {
		if sc != nil {
			c.scope = sc
		}
	}
}

// WithClock sets the clock measuring windows. The default is the scope's
// clock.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithErrorHandler sets where consumer errors and panics are reported.
func WithErrorHandler(h lifescope.ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.handler = h
		}
	}
}

// WithFlushOnCancel delivers values still pending at cancellation in one
// last batch. By default they are discarded.
func WithFlushOnCancel() Option {
	return func(c *config) {
		c.flushOnCancel = true
	}
}

// WithName names the task in error reports, signals and its scope job.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
