package lifetime

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"

	"github.com/baxromumarov/lifescope"
)

// ErrTerminated is returned by [Registry.Dispatch] once the terminal event
// has been dispatched.
var ErrTerminated = errors.New("lifetime: already terminated")

// Registry is a [Lifetime] driven by its host.
//
// Dispatch delivers an event to every observer registered before the
// delivery started, in registration order. An event dispatched while
// another is being delivered, from an observer or another goroutine, is
// queued and delivered afterwards, so every observer sees events in
// dispatch order. Observer panics are recovered and reported to the
// registry's error handler.
type Registry struct {
	name     string
	terminal Event
	handler  lifescope.ErrorHandler

	mu          sync.Mutex
	observers   []*observer
	queue       []Event
	dispatching bool
	closed      bool
	current     Event
	hasCurrent  bool

	terminated atomic.Bool
}

type observer struct {
	fn     func(Event)
	active atomic.Bool
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithTerminal sets the terminal event. The default is [Destroy].
func WithTerminal(ev Event) RegistryOption {
	return func(r *Registry) {
		if ev != "" {
			r.terminal = ev
		}
	}
}

// WithName names the registry in error reports and signals.
func WithName(name string) RegistryOption {
	return func(r *Registry) {
		r.name = name
	}
}

// WithErrorHandler sets where observer panics are reported.
func WithErrorHandler(h lifescope.ErrorHandler) RegistryOption {
	return func(r *Registry) {
		if h != nil {
			r.handler = h
		}
	}
}

// NewRegistry creates a registry that has not seen any event yet.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		name:     "lifetime",
		terminal: Destroy,
		handler:  lifescope.DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewClearable creates a view-model style registry: it has no phases and
// ends with [Cleared].
func NewClearable(opts ...RegistryOption) *Registry {
	return NewRegistry(append([]RegistryOption{WithTerminal(Cleared)}, opts...)...)
}

// Terminal returns the terminal event.
func (r *Registry) Terminal() Event {
	return r.terminal
}

// Terminated implements Lifetime.
func (r *Registry) Terminated() bool {
	return r.terminated.Load()
}

// Current returns the last delivered event.
func (r *Registry) Current() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.hasCurrent
}

// Observe implements Lifetime. Observers added after termination are never
// called.
func (r *Registry) Observe(fn func(Event)) func() {
	o := &observer{fn: fn}
	o.active.Store(true)

	r.mu.Lock()
	if r.terminated.Load() {
		r.mu.Unlock()
		return func() {}
	}
	r.observers = append(r.observers, o)
	r.mu.Unlock()

	return func() {
		if !o.active.CompareAndSwap(true, false) {
			return
		}
		r.mu.Lock()
		r.observers = slices.DeleteFunc(r.observers, func(x *observer) bool { return x == o })
		r.mu.Unlock()
	}
}

// Observers returns the number of registered observers.
func (r *Registry) Observers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// Dispatch delivers ev. After the terminal event has been dispatched it
// returns [ErrTerminated] and delivers nothing. Dispatch never returns an
// error raised by an observer.
func (r *Registry) Dispatch(ev Event) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrTerminated
	}
	if ev == r.terminal {
		r.closed = true
	}
	r.queue = append(r.queue, ev)
	if r.dispatching {
		r.mu.Unlock()
		return nil
	}
	r.dispatching = true

	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.current, r.hasCurrent = next, true
		observers := slices.Clone(r.observers)
		if next == r.terminal {
			r.terminated.Store(true)
			r.observers = nil
		}
		r.mu.Unlock()

		r.deliver(next, observers)

		r.mu.Lock()
	}

	r.dispatching = false
	r.mu.Unlock()
	return nil
}

func (r *Registry) deliver(ev Event, observers []*observer) {
	capitan.Emit(context.Background(), lifescope.LifetimeEvent,
		lifescope.KeyScope.Field(r.name),
		lifescope.KeyEvent.Field(ev.String()),
	)

	origin := r.name + " observer (" + ev.String() + ")"
	for _, o := range observers {
		if !o.active.Load() {
			continue
		}
		lifescope.Protect(r.handler, origin, func() error {
			o.fn(ev)
			return nil
		})
	}
}
