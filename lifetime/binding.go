package lifetime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"

	"github.com/baxromumarov/lifescope"
)

// Binding ties one cancel action to one [Lifetime]. It fires at most once
// and stops observing the lifetime when it fires. A panic in the cancel
// action is reported and never reaches the lifetime's dispatch.
type Binding struct {
	lt      Lifetime
	cancel  func() error
	pairs   Pairs
	handler lifescope.ErrorHandler
	name    string

	mu        sync.Mutex
	target    Event
	inferred  bool
	unobserve func()

	settled atomic.Bool
	fired   atomic.Bool
	firedAt atomic.Pointer[Event]
	done    chan struct{}
}

// BindOption configures a [Binding].
type BindOption func(*Binding)

// Until fires the binding at ev instead of inferring the target.
func Until(ev Event) BindOption {
	return func(b *Binding) {
		b.target = ev
	}
}

// WithPairs replaces [DefaultPairs] for target inference.
func WithPairs(p Pairs) BindOption {
	return func(b *Binding) {
		if p != nil {
			b.pairs = p
		}
	}
}

// OnError sets where panics and errors of the cancel action are reported.
// The default is [lifescope.DefaultErrorHandler].
func OnError(h lifescope.ErrorHandler) BindOption {
	return func(b *Binding) {
		if h != nil {
			b.handler = h
		}
	}
}

// Named names the binding in error reports and signals.
func Named(name string) BindOption {
	return func(b *Binding) {
		b.name = name
	}
}

// Bind cancels c when lt reaches the binding's target event:
//
//   - the event given with [Until], or
//   - the event closing the phase lt is in at bind time, when lt
//     implements [Current], or else the phase opened by the first event
//     observed after binding.
//
// If the target never occurs, c is cancelled at the terminal event. If lt
// is already terminated, c is cancelled before Bind returns.
func Bind(lt Lifetime, c lifescope.Cancelable, opts ...BindOption) *Binding {
	return bind(lt, func() error {
		c.Cancel()
		return nil
	}, opts)
}

// BindFunc is Bind for a cancel action that can fail. Its error is
// reported to the binding's error handler.
func BindFunc(lt Lifetime, cancel func() error, opts ...BindOption) *Binding {
	return bind(lt, cancel, opts)
}

// BindTo binds c to lt and returns c for chaining:
//
//	task := lifetime.BindTo(buffer.New(time.Second, flush), reg)
func BindTo[C lifescope.Cancelable](c C, lt Lifetime, opts ...BindOption) C {
	Bind(lt, c, opts...)
	return c
}

func bind(lt Lifetime, cancel func() error, opts []BindOption) *Binding {
	b := &Binding{
		lt:      lt,
		cancel:  cancel,
		pairs:   DefaultPairs,
		handler: lifescope.DefaultErrorHandler,
		name:    "binding",
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.target == "" {
		if cur, ok := lt.(Current); ok {
			if ev, ok := cur.Current(); ok {
				b.inferred = true
				if end, ok := b.pairs.End(ev); ok {
					b.target = end
				}
			}
		}
	}

	if lt.Terminated() {
		b.fire("")
		return b
	}

	unobserve := lt.Observe(b.observe)
	b.mu.Lock()
	b.unobserve = unobserve
	b.mu.Unlock()

	// The binding may have fired, or the lifetime terminated, while the
	// observer was being registered.
	if b.settled.Load() || lt.Terminated() {
		b.fire("")
	}
	return b
}

func (b *Binding) observe(ev Event) {
	if b.settled.Load() {
		return
	}

	b.mu.Lock()
	if b.target == "" && !b.inferred {
		b.inferred = true
		if end, ok := b.pairs.End(ev); ok {
			b.target = end
		}
	}
	target := b.target
	b.mu.Unlock()

	if ev == target || b.lt.Terminated() {
		b.fire(ev)
	}
}

// fire runs the cancel action once and detaches from the lifetime.
// Later calls only make sure the observer is removed.
func (b *Binding) fire(ev Event) {
	if b.settled.CompareAndSwap(false, true) {
		b.firedAt.Store(&ev)
		b.fired.Store(true)
		lifescope.Protect(b.handler, b.name+" cancel", b.cancel)
		capitan.Emit(context.Background(), lifescope.BindingFired,
			lifescope.KeyTask.Field(b.name),
			lifescope.KeyEvent.Field(ev.String()),
		)
		close(b.done)
	}
	b.detach()
}

func (b *Binding) detach() {
	b.mu.Lock()
	unobserve := b.unobserve
	b.unobserve = nil
	b.mu.Unlock()
	if unobserve != nil {
		unobserve()
	}
}

// Target returns the target event, or "" while it is still unknown or
// when only the terminal fallback applies.
func (b *Binding) Target() Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

// Fired reports whether the cancel action has run.
func (b *Binding) Fired() bool {
	return b.fired.Load()
}

// FiredAt returns the event that fired the binding. It is "" when the
// binding fired because the lifetime was already terminated.
func (b *Binding) FiredAt() (Event, bool) {
	if p := b.firedAt.Load(); p != nil {
		return *p, true
	}
	return "", false
}

// Done returns a channel closed once the binding has settled: after the
// cancel action has run, or after Unbind.
func (b *Binding) Done() <-chan struct{} {
	return b.done
}

// Unbind detaches the binding without cancelling. It reports whether the
// binding was still pending.
func (b *Binding) Unbind() bool {
	pending := b.settled.CompareAndSwap(false, true)
	if pending {
		close(b.done)
	}
	b.detach()
	return pending
}
