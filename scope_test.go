package lifescope_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/lifescope"
)

// recorder is an ErrorHandler that keeps what it is given.
type recorder struct {
	mu      sync.Mutex
	origins []string
	errs    []error
}

func (r *recorder) handle(origin string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = append(r.origins, origin)
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.origins...), append([]error(nil), r.errs...)
}

func quiet() lifescope.Option {
	return lifescope.WithErrorHandler(func(string, error) {})
}

func TestPropagate_FirstFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	sc := lifescope.New(context.Background(), lifescope.WithName("screen"), quiet())

	sibling := sc.Launch("sibling", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	failing := sc.Launch("failing", func(ctx context.Context) error {
		return boom
	})

	err := sc.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	info, ok := lifescope.TaskOf(err)
	require.True(t, ok)
	assert.Equal(t, lifescope.TaskInfo{Scope: "screen", Name: "failing"}, info)

	assert.Equal(t, lifescope.JobFailed, failing.State())
	assert.Equal(t, lifescope.JobCancelled, sibling.State())
	assert.ErrorIs(t, sibling.Err(), boom)
	assert.ErrorIs(t, context.Cause(sc.Context()), boom)
}

func TestPropagate_FailureReportedToHandler(t *testing.T) {
	rec := &recorder{}
	sc := lifescope.New(context.Background(), lifescope.WithName("s"), lifescope.WithErrorHandler(rec.handle))
	sc.Launch("t", func(context.Context) error { return errors.New("x") })
	require.Error(t, sc.Wait())

	origins, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, "s/t", origins[0])
	assert.True(t, lifescope.IsTaskError(errs[0]))
}

func TestSupervise_SiblingsComplete(t *testing.T) {
	rec := &recorder{}
	sc := lifescope.New(context.Background(),
		lifescope.WithPolicy(lifescope.Supervise),
		lifescope.WithErrorHandler(rec.handle),
	)

	var completed atomic.Int32
	for i := 0; i < 3; i++ {
		sc.Launch("ok", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() == nil {
				completed.Add(1)
			}
			return nil
		})
	}
	sc.Launch("a", func(context.Context) error { return errors.New("a failed") })
	sc.Launch("b", func(context.Context) error { return errors.New("b failed") })

	err := sc.Wait()
	require.Error(t, err)
	assert.Equal(t, int32(3), completed.Load())
	assert.Len(t, lifescope.AllTaskErrors(err), 2)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
	assert.Equal(t, 2, rec.count())
}

func TestSupervise_MaxErrors(t *testing.T) {
	rec := &recorder{}
	sc := lifescope.New(context.Background(),
		lifescope.WithPolicy(lifescope.Supervise),
		lifescope.WithMaxErrors(2),
		lifescope.WithErrorHandler(rec.handle),
	)
	for i := 0; i < 5; i++ {
		sc.Launch("fail", func(context.Context) error { return errors.New("fail") })
	}

	err := sc.Wait()
	assert.Len(t, lifescope.AllTaskErrors(err), 2)
	assert.Equal(t, 3, sc.DroppedErrors())
	assert.Equal(t, 5, rec.count())
}

func TestPanicIsFailure(t *testing.T) {
	sc := lifescope.New(context.Background(), quiet())
	job := sc.Launch("panics", func(context.Context) error {
		panic("kaboom")
	})

	err := sc.Wait()
	var pe *lifescope.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, lifescope.JobFailed, job.State())
}

func TestPanicWithErrorUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	sc := lifescope.New(context.Background(), quiet())
	sc.Launch("panics", func(context.Context) error { panic(sentinel) })
	assert.ErrorIs(t, sc.Wait(), sentinel)
}

func TestCancel(t *testing.T) {
	sc := lifescope.New(context.Background())
	job := sc.Launch("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return context.Cause(ctx)
	})

	sc.Cancel()
	sc.Cancel()

	err := sc.Wait()
	assert.ErrorIs(t, err, lifescope.ErrCancelled)
	assert.Equal(t, lifescope.JobCancelled, job.State())
	assert.ErrorIs(t, job.Err(), lifescope.ErrCancelled)
}

func TestCancelWithCause_FirstWins(t *testing.T) {
	first := errors.New("first")
	sc := lifescope.New(context.Background())
	sc.CancelWithCause(first)
	sc.CancelWithCause(errors.New("second"))
	assert.ErrorIs(t, sc.Wait(), first)
}

func TestParentContextCancelsScope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := lifescope.New(ctx)
	job := sc.Launch("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	assert.ErrorIs(t, sc.Wait(), context.Canceled)
	assert.Equal(t, lifescope.JobCancelled, job.State())
}

func TestWait_Idempotent(t *testing.T) {
	sc := lifescope.New(context.Background(), quiet())
	sc.Launch("fail", func(context.Context) error { return errors.New("x") })
	err1 := sc.Wait()
	err2 := sc.Wait()
	assert.Same(t, err1, err2)
}

func TestWait_NilWhenAllSucceed(t *testing.T) {
	sc := lifescope.New(context.Background())
	for i := 0; i < 10; i++ {
		sc.Launch("ok", func(context.Context) error { return nil })
	}
	assert.NoError(t, sc.Wait())
	assert.Equal(t, int64(10), sc.TotalSpawned())
	assert.Equal(t, int64(0), sc.ActiveTasks())
}

func TestLaunchAfterWait_IsCancelled(t *testing.T) {
	sc := lifescope.New(context.Background())
	require.NoError(t, sc.Wait())

	var ran atomic.Bool
	job := sc.Launch("late", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	<-job.Done()
	assert.Equal(t, lifescope.JobCancelled, job.State())
	assert.ErrorIs(t, job.Err(), lifescope.ErrScopeClosed)
	assert.False(t, ran.Load())
}

func TestTaskLaunchesSiblingDuringWait(t *testing.T) {
	sc := lifescope.New(context.Background())
	var second atomic.Bool
	sc.Launch("first", func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		sc.Launch("second", func(context.Context) error {
			second.Store(true)
			return nil
		})
		return nil
	})
	require.NoError(t, sc.Wait())
	assert.True(t, second.Load())
}

func TestChild(t *testing.T) {
	t.Run("parent wait covers child tasks", func(t *testing.T) {
		parent := lifescope.New(context.Background())
		child := parent.Child("child")
		var done atomic.Bool
		child.Launch("slow", func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			done.Store(true)
			return nil
		})
		require.NoError(t, parent.Wait())
		assert.True(t, done.Load())
		assert.Equal(t, "child", child.Name())
	})

	t.Run("parent cancel cancels child", func(t *testing.T) {
		parent := lifescope.New(context.Background())
		child := parent.Child("child")
		job := child.Launch("blocked", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		parent.Cancel()
		<-job.Done()
		assert.Equal(t, lifescope.JobCancelled, job.State())
		assert.Error(t, child.Context().Err())
	})

	t.Run("propagate child fails parent", func(t *testing.T) {
		boom := errors.New("boom")
		parent := lifescope.New(context.Background(), quiet())
		child := parent.Child("child")
		sibling := parent.Launch("sibling", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		child.Launch("fail", func(context.Context) error { return boom })

		assert.ErrorIs(t, parent.Wait(), boom)
		assert.Equal(t, lifescope.JobCancelled, sibling.State())
	})

	t.Run("supervise child isolates failure", func(t *testing.T) {
		parent := lifescope.New(context.Background(), quiet())
		child := parent.Child("child", lifescope.WithPolicy(lifescope.Supervise))
		child.Launch("fail", func(context.Context) error { return errors.New("x") })

		assert.Error(t, child.Wait())
		assert.NoError(t, parent.Wait())
	})

	t.Run("child cancel leaves parent running", func(t *testing.T) {
		parent := lifescope.New(context.Background())
		child := parent.Child("child")
		child.Cancel()
		assert.NoError(t, parent.Context().Err())
		assert.NoError(t, parent.Wait())
	})
}

func TestLimit(t *testing.T) {
	var running, peak atomic.Int32
	sc := lifescope.New(context.Background(), lifescope.WithLimit(2))
	for i := 0; i < 8; i++ {
		sc.Launch("work", func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	require.NoError(t, sc.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestHooks(t *testing.T) {
	var started, finished atomic.Int32
	var lastErr atomic.Value
	sc := lifescope.New(context.Background(), quiet(),
		lifescope.WithPolicy(lifescope.Supervise),
		lifescope.WithOnStart(func(lifescope.TaskInfo) { started.Add(1) }),
		lifescope.WithOnDone(func(_ lifescope.TaskInfo, err error, _ time.Duration) {
			finished.Add(1)
			if err != nil {
				lastErr.Store(err)
			}
		}),
	)
	sc.Launch("ok", func(context.Context) error { return nil })
	sc.Launch("fail", func(context.Context) error { return errors.New("x") })
	_ = sc.Wait()

	assert.Equal(t, int32(2), started.Load())
	assert.Equal(t, int32(2), finished.Load())
	assert.NotNil(t, lastErr.Load())
}

func TestRun(t *testing.T) {
	var count atomic.Int32
	err := lifescope.Run(context.Background(), func(sc *lifescope.Scope) {
		for i := 0; i < 10; i++ {
			sc.Launch("task", func(context.Context) error {
				count.Add(1)
				return nil
			})
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int32(10), count.Load())
}

func TestRun_SetupPanicFinalizesScope(t *testing.T) {
	var captured *lifescope.Scope
	var cancelled atomic.Bool

	assert.PanicsWithValue(t, "setup boom", func() {
		_ = lifescope.Run(context.Background(), func(sc *lifescope.Scope) {
			captured = sc
			started := make(chan struct{})
			sc.Launch("blocked", func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				cancelled.Store(true)
				return ctx.Err()
			})
			<-started
			panic("setup boom")
		})
	})

	assert.True(t, cancelled.Load())
	job := captured.Launch("late", func(context.Context) error { return nil })
	<-job.Done()
	assert.ErrorIs(t, job.Err(), lifescope.ErrScopeClosed)
}

func TestBackground(t *testing.T) {
	bg := lifescope.Background()
	assert.Same(t, bg, lifescope.Background())
	assert.Equal(t, lifescope.Supervise, bg.Policy())

	bg.Cancel()
	assert.NoError(t, bg.Context().Err())

	job := bg.Launch("fails", func(context.Context) error { return errors.New("ignored") })
	<-job.Done()
	assert.Equal(t, lifescope.JobFailed, job.State())

	assert.NoError(t, bg.Wait())

	// Background stays usable after Wait.
	job = bg.Launch("after", func(context.Context) error { return nil })
	<-job.Done()
	assert.Equal(t, lifescope.JobCompleted, job.State())
}

func TestCustomExecutorRejects(t *testing.T) {
	rejected := errors.New("rejected")
	sc := lifescope.New(context.Background(), quiet(),
		lifescope.WithExecutor(lifescope.ExecutorFunc(func(func()) error { return rejected })),
	)
	job := sc.Launch("never", func(context.Context) error { return nil })
	<-job.Done()
	assert.Equal(t, lifescope.JobFailed, job.State())
	assert.ErrorIs(t, job.Err(), rejected)
	assert.ErrorIs(t, sc.Wait(), rejected)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want lifescope.Policy
		ok   bool
	}{
		{"propagate", lifescope.Propagate, true},
		{"fail-fast", lifescope.Propagate, true},
		{"supervise", lifescope.Supervise, true},
		{"isolate", lifescope.Supervise, true},
		{"bogus", lifescope.Propagate, false},
	}
	for _, tt := range tests {
		got, ok := lifescope.ParsePolicy(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.Equal(t, "supervise", lifescope.Supervise.String())
	assert.Panics(t, func() { lifescope.WithPolicy(lifescope.Policy(9))(nil) })
}
