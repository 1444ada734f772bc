package lifetime

// Event is a named lifetime event. Hosts may define their own events in
// addition to the standard ones below.
type Event string

// Standard events. Create, Start and Resume open a phase that Destroy,
// Stop and Pause close again.
const (
	Create  Event = "create"
	Start   Event = "start"
	Resume  Event = "resume"
	Pause   Event = "pause"
	Stop    Event = "stop"
	Destroy Event = "destroy"

	// Cleared ends a view-model style lifetime, see [NewClearable].
	Cleared Event = "cleared"
)

// String returns the event name.
func (e Event) String() string {
	return string(e)
}

// Pairs maps a phase-opening event to the event that closes the phase.
type Pairs map[Event]Event

// DefaultPairs is the pairing used to infer a binding's target event.
var DefaultPairs = Pairs{
	Create: Destroy,
	Start:  Stop,
	Resume: Pause,
}

// End returns the event closing the phase opened by ev.
func (p Pairs) End(ev Event) (Event, bool) {
	end, ok := p[ev]
	return end, ok
}

// Opens reports whether ev opens a phase in p.
func (p Pairs) Opens(ev Event) bool {
	_, ok := p[ev]
	return ok
}
