package lifescope

// Executor runs tasks dispatched by a [Scope]. Execute must either arrange
// for task to run exactly once or return an error, in which case the task
// never runs and its job fails with that error.
type Executor interface {
	Execute(task func()) error
}

// GoExecutor runs every task on a new goroutine. It never rejects a task.
type GoExecutor struct{}

// Execute implements Executor.
func (GoExecutor) Execute(task func()) error {
	go task()
	return nil
}

// ExecutorFunc adapts a function to [Executor].
type ExecutorFunc func(task func()) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}
