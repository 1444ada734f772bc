package lifescope

import "github.com/zoobzio/capitan"

// Task and scope signals.
var (
	// TaskFailed is emitted when a task returns an error or panics.
	TaskFailed = capitan.NewSignal(
		"lifescope.task.failed",
		"Task finished with an error",
	)

	// ScopeCancelled is emitted when a scope is cancelled, explicitly or by
	// a propagated task failure.
	ScopeCancelled = capitan.NewSignal(
		"lifescope.scope.cancelled",
		"Scope cancelled",
	)

	// ErrorReported is emitted after an error reached the diagnostic sink.
	ErrorReported = capitan.NewSignal(
		"lifescope.error.reported",
		"Error delivered to the diagnostic handler",
	)
)

// Lifetime signals.
var (
	// LifetimeEvent is emitted for every event a lifetime registry delivers.
	LifetimeEvent = capitan.NewSignal(
		"lifescope.lifetime.event",
		"Lifetime event dispatched",
	)

	// BindingFired is emitted when a lifetime binding cancels its resource.
	BindingFired = capitan.NewSignal(
		"lifescope.binding.fired",
		"Lifetime binding cancelled its resource",
	)
)

// Buffer task signals.
var (
	// BufferStarted is emitted when a buffer task starts its receiver loop.
	BufferStarted = capitan.NewSignal(
		"lifescope.buffer.started",
		"Buffer task receiver loop started",
	)

	// BufferFlushed is emitted after a batch was handed to the consumer.
	BufferFlushed = capitan.NewSignal(
		"lifescope.buffer.flushed",
		"Buffer task delivered a batch",
	)

	// BufferStopped is emitted when the receiver loop exits.
	BufferStopped = capitan.NewSignal(
		"lifescope.buffer.stopped",
		"Buffer task receiver loop stopped",
	)
)
