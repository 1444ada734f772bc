// Package lifetime binds cancellable resources to host lifetimes.
//
// A [Lifetime] delivers ordered [Event] values to synchronous observers
// and ends with a terminal event. [Registry] is a concrete lifetime driven
// by its host through [Registry.Dispatch].
//
// [Bind] cancels a [lifescope.Cancelable] exactly once: at an explicit
// target event ([Until]), at the event closing the phase the lifetime was
// in when bound (Create→Destroy, Start→Stop, Resume→Pause), or at the
// terminal event when neither happened.
//
//	reg := lifetime.NewRegistry()
//	_ = reg.Dispatch(lifetime.Create)
//
//	task := lifetime.BindTo(buffer.New(time.Second, flush), reg)
//	...
//	_ = reg.Dispatch(lifetime.Destroy) // task is cancelled
//
// [Context] and [NewScope] derive a context or a [lifescope.Scope] that
// ends at a given event. [Host] is an owner that carries its own registry
// and lifetime scope.
package lifetime
