// Package buffer implements a time-windowed batch collector.
//
// A [Task] accepts values from any goroutine through Emit and delivers
// them to a single consumer in batches. Waiting uses a rolling deadline:
// each window lasts a fixed delay from its start, however many values
// arrive, which bounds the latency of every value to one window while
// coalescing bursts into one consumer call.
//
//	task := buffer.New(500*time.Millisecond, func(batch []Event) error {
//	    return store.SaveAll(batch)
//	}, buffer.WithScope(sc))
//	task.Emit(ev)
//
// The receiver loop is a task of a [lifescope.Scope]; cancelling the
// scope, calling Cancel or binding the task to a lifetime stops it.
package buffer
