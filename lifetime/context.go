package lifetime

import (
	"context"
	"errors"
	"fmt"

	"github.com/baxromumarov/lifescope"
)

var (
	// ErrForbiddenEvent is returned when a context or scope is asked to end
	// at an event that opens a phase.
	ErrForbiddenEvent = errors.New("lifetime: event cannot end a context")

	// ErrLifetimeEnded is the cancellation cause of contexts and scopes
	// ended by their lifetime.
	ErrLifetimeEnded = errors.New("lifetime: ended")
)

// Context returns a context derived from parent that is cancelled with
// cause [ErrLifetimeEnded] when lt reaches ev, or at lt's terminal event.
// ev must not open a phase ([Create], [Start], [Resume]); those are
// rejected with [ErrForbiddenEvent]. If lt is already terminated the
// returned context is already cancelled.
//
// The returned CancelFunc releases the binding and cancels the context.
func Context(parent context.Context, lt Lifetime, ev Event) (context.Context, context.CancelFunc, error) {
	if err := checkEndEvent(ev); err != nil {
		return nil, nil, err
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancelCause(parent)
	b := Bind(lt, lifescope.CancelFunc(func() {
		cancel(fmt.Errorf("%w at %s", ErrLifetimeEnded, ev))
	}), Until(ev), Named("context@"+ev.String()))

	// Unbind once the context ends for any reason.
	stop := context.AfterFunc(ctx, func() { b.Unbind() })

	return ctx, func() {
		stop()
		b.Unbind()
		cancel(context.Canceled)
	}, nil
}

// NewScope returns a [lifescope.Scope] cancelled when lt reaches ev, or at
// lt's terminal event. ev is checked like in [Context].
func NewScope(lt Lifetime, ev Event, opts ...lifescope.Option) (*lifescope.Scope, error) {
	if err := checkEndEvent(ev); err != nil {
		return nil, err
	}
	sc := lifescope.New(context.Background(), opts...)
	b := Bind(lt, lifescope.CancelFunc(func() {
		sc.CancelWithCause(fmt.Errorf("%w at %s", ErrLifetimeEnded, ev))
	}), Until(ev), Named("scope@"+ev.String()))
	context.AfterFunc(sc.Context(), func() { b.Unbind() })
	return sc, nil
}

func checkEndEvent(ev Event) error {
	if ev == "" || DefaultPairs.Opens(ev) {
		return fmt.Errorf("%w: %q", ErrForbiddenEvent, ev)
	}
	return nil
}
