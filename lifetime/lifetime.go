package lifetime

// Lifetime is a scope with ordered events and a terminal state, supplied
// by a host (a screen, a request, a process). Observers are called
// synchronously, in delivery order, for every event.
type Lifetime interface {
	// Observe registers fn for future events. The returned function
	// removes the observer; it is safe to call more than once and from
	// inside fn.
	Observe(fn func(Event)) (unobserve func())

	// Terminated reports whether the terminal event has been delivered.
	// No events follow it.
	Terminated() bool
}

// Current is implemented by lifetimes that know their latest event. A
// binding without an explicit target uses it to infer the target once,
// at bind time.
type Current interface {
	Current() (Event, bool)
}
