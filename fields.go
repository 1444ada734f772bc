package lifescope

import "github.com/zoobzio/capitan"

// Field keys carried by lifescope signals.
var (
	// KeyScope is the name of the scope a task belongs to.
	KeyScope = capitan.NewStringKey("scope")

	// KeyTask is the name of the task.
	KeyTask = capitan.NewStringKey("task")

	// KeyOrigin is where an error surfaced.
	KeyOrigin = capitan.NewStringKey("origin")

	// KeyError is the error message.
	KeyError = capitan.NewStringKey("error")

	// KeyEvent is a lifetime event name.
	KeyEvent = capitan.NewStringKey("event")

	// KeyBatchSize is the number of values in a delivered batch.
	KeyBatchSize = capitan.NewIntKey("batch_size")

	// KeyDelay is the window of a buffer task.
	KeyDelay = capitan.NewDurationKey("delay")
)
