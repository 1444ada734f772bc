package lifescope

import (
	"context"
	"errors"

	"github.com/baxromumarov/lifescope/chanx"
)

// ErrActorClosed is returned by [Actor.Send] after the actor was closed.
var ErrActorClosed = errors.New("lifescope: actor is closed")

// Actor consumes messages from a mailbox one at a time on a task of its
// scope. Producers may keep sending while the actor shuts down: sending to
// a closed actor fails instead of panicking.
type Actor[T any] struct {
	mailbox *chanx.Closable[T]
	job     *Job
}

// NewActor launches an actor named name on sc. fn handles each message in
// order; an error from fn stops the actor and is handled like any task
// failure of sc. capacity is the mailbox buffer size.
func NewActor[T any](sc *Scope, name string, capacity int, fn func(ctx context.Context, msg T) error) *Actor[T] {
	a := &Actor[T]{mailbox: chanx.NewClosable[T](capacity)}
	a.job = sc.Launch(name, func(ctx context.Context) error {
		for {
			msg, ok, err := chanx.Recv(ctx, a.mailbox.Chan())
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := fn(ctx, msg); err != nil {
				return err
			}
		}
	})
	go func() {
		// Also covers jobs that never ran, e.g. on a closed scope.
		<-a.job.Done()
		a.mailbox.Close()
	}()
	return a
}

// Offer hands msg to the mailbox without blocking. It returns false when
// the mailbox is full or the actor is closed.
func (a *Actor[T]) Offer(msg T) bool {
	return a.mailbox.TrySend(msg) == nil
}

// Send blocks until msg is in the mailbox, ctx is done or the actor is
// closed.
func (a *Actor[T]) Send(ctx context.Context, msg T) error {
	err := a.mailbox.SendContext(ctx, msg)
	if errors.Is(err, chanx.ErrClosed) {
		return ErrActorClosed
	}
	return err
}

// Close stops accepting messages. Messages already in the mailbox are
// still handled before the actor finishes.
func (a *Actor[T]) Close() {
	a.mailbox.Close()
}

// Cancel closes the mailbox and cancels the actor's task, dropping queued
// messages. It implements [Cancelable].
func (a *Actor[T]) Cancel() {
	a.mailbox.Close()
	a.job.Cancel()
}

// Done returns a channel closed when the actor's task has finished.
func (a *Actor[T]) Done() <-chan struct{} {
	return a.job.Done()
}

// Job returns the actor's task.
func (a *Actor[T]) Job() *Job {
	return a.job
}
