// Package lifescope provides lifecycle-scoped, cancellable concurrency
// primitives for Go.
//
// # Scopes
//
// A [Scope] is a cancellable region of concurrent work. Tasks launched on
// it share its context and failure policy:
//
//	sc := lifescope.New(ctx, lifescope.WithName("screen"))
//	sc.Launch("refresh", func(ctx context.Context) error {
//	    return refresh(ctx)
//	})
//	err := sc.Wait()
//
// [Run] creates a scope, calls a function with it and waits for the tasks
// it launched. [Scope.Child] nests scopes; a parent's Wait covers the tasks
// of its children.
//
// # Policies
//
//   - [Propagate] (default): the first uncaught failure cancels the whole
//     scope subtree and [Scope.Wait] returns it.
//   - [Supervise]: failures stay isolated; they go to the error handler and
//     Wait returns them joined.
//
// [Background] is the process-wide scope. It is never cancelled, so work
// launched there outlives every lifetime.
//
// # Jobs and deferred results
//
// [Scope.Launch] returns a [Job] (Pending, Running, then Completed, Failed
// or Cancelled). [Async] returns a [Deferred] with [Deferred.Await] and
// [Deferred.AwaitOrNull]. [Scope.LaunchAfter] delays a task on the scope's
// clock and [Detached] opts a task out of the scope's cancellation.
//
// # Errors
//
// Every failure is wrapped in a [*TaskError] naming its scope and task.
// Panics are recovered into [*PanicError]. Errors that must not reach the
// caller go to an [ErrorHandler], by default a slog ERROR line. Failures
// are also emitted as capitan signals ([TaskFailed], [ScopeCancelled]).
//
// # Executors
//
// Tasks run on an [Executor]: a goroutine per task by default, or a
// fixed-size [Pool] via [WithExecutor]. [WithLimit] bounds concurrently
// running tasks.
//
// # Cancelable
//
// [Cancelable] is the single-method capability shared by jobs, deferreds,
// scopes, actors and buffer tasks; package lifetime cancels any Cancelable
// at a lifetime event.
package lifescope
