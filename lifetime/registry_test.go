package lifetime_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/lifescope/lifetime"
)

type errRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errRecorder) handle(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *errRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func TestRegistry_DeliversInOrder(t *testing.T) {
	reg := lifetime.NewRegistry()
	var got []string
	reg.Observe(func(ev lifetime.Event) { got = append(got, "a:"+ev.String()) })
	reg.Observe(func(ev lifetime.Event) { got = append(got, "b:"+ev.String()) })

	require.NoError(t, reg.Dispatch(lifetime.Create))
	require.NoError(t, reg.Dispatch(lifetime.Start))

	assert.Equal(t, []string{"a:create", "b:create", "a:start", "b:start"}, got)

	ev, ok := reg.Current()
	assert.True(t, ok)
	assert.Equal(t, lifetime.Start, ev)
}

func TestRegistry_ReentrantDispatchIsQueued(t *testing.T) {
	reg := lifetime.NewRegistry()
	var got []string
	reg.Observe(func(ev lifetime.Event) {
		got = append(got, "first:"+ev.String())
		if ev == lifetime.Create {
			require.NoError(t, reg.Dispatch(lifetime.Start))
		}
	})
	reg.Observe(func(ev lifetime.Event) {
		got = append(got, "second:"+ev.String())
	})

	require.NoError(t, reg.Dispatch(lifetime.Create))
	assert.Equal(t, []string{
		"first:create", "second:create",
		"first:start", "second:start",
	}, got)
}

func TestRegistry_Terminal(t *testing.T) {
	reg := lifetime.NewRegistry()
	var events []lifetime.Event
	reg.Observe(func(ev lifetime.Event) {
		// Observers already see the terminal state.
		if ev == lifetime.Destroy {
			assert.True(t, reg.Terminated())
		}
		events = append(events, ev)
	})

	assert.False(t, reg.Terminated())
	require.NoError(t, reg.Dispatch(lifetime.Destroy))
	assert.True(t, reg.Terminated())
	assert.Equal(t, 0, reg.Observers())

	assert.ErrorIs(t, reg.Dispatch(lifetime.Create), lifetime.ErrTerminated)
	assert.Equal(t, []lifetime.Event{lifetime.Destroy}, events)

	unobserve := reg.Observe(func(lifetime.Event) { t.Fatal("observer after termination") })
	assert.NotPanics(t, unobserve)
	assert.Equal(t, 0, reg.Observers())
}

func TestRegistry_Unobserve(t *testing.T) {
	reg := lifetime.NewRegistry()
	var n int
	unobserve := reg.Observe(func(lifetime.Event) { n++ })
	require.NoError(t, reg.Dispatch(lifetime.Create))

	unobserve()
	unobserve()
	assert.Equal(t, 0, reg.Observers())
	require.NoError(t, reg.Dispatch(lifetime.Start))
	assert.Equal(t, 1, n)
}

func TestRegistry_UnobserveDuringDelivery(t *testing.T) {
	reg := lifetime.NewRegistry()
	var secondCalls int
	var unobserveSecond func()
	reg.Observe(func(lifetime.Event) { unobserveSecond() })
	unobserveSecond = reg.Observe(func(lifetime.Event) { secondCalls++ })

	require.NoError(t, reg.Dispatch(lifetime.Create))
	assert.Equal(t, 0, secondCalls)
}

func TestRegistry_ObserverPanicIsIsolated(t *testing.T) {
	rec := &errRecorder{}
	reg := lifetime.NewRegistry(lifetime.WithName("screen"), lifetime.WithErrorHandler(rec.handle))
	var reached bool
	reg.Observe(func(lifetime.Event) { panic("observer") })
	reg.Observe(func(lifetime.Event) { reached = true })

	assert.NotPanics(t, func() {
		require.NoError(t, reg.Dispatch(lifetime.Create))
	})
	assert.True(t, reached)
	assert.Equal(t, 1, rec.count())
}

func TestRegistry_CustomTerminal(t *testing.T) {
	reg := lifetime.NewRegistry(lifetime.WithTerminal("closed"))
	assert.Equal(t, lifetime.Event("closed"), reg.Terminal())

	require.NoError(t, reg.Dispatch(lifetime.Destroy))
	assert.False(t, reg.Terminated())
	require.NoError(t, reg.Dispatch("closed"))
	assert.True(t, reg.Terminated())
}

func TestNewClearable(t *testing.T) {
	reg := lifetime.NewClearable()
	assert.Equal(t, lifetime.Cleared, reg.Terminal())

	_, ok := reg.Current()
	assert.False(t, ok)
	require.NoError(t, reg.Dispatch(lifetime.Cleared))
	assert.True(t, reg.Terminated())
}

func TestRegistry_ConcurrentDispatch(t *testing.T) {
	reg := lifetime.NewRegistry()
	var mu sync.Mutex
	counts := map[lifetime.Event]int{}
	reg.Observe(func(ev lifetime.Event) {
		mu.Lock()
		counts[ev]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Dispatch(lifetime.Resume)
			_ = reg.Dispatch(lifetime.Pause)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counts[lifetime.Resume])
	assert.Equal(t, 50, counts[lifetime.Pause])
}

func TestPairs(t *testing.T) {
	end, ok := lifetime.DefaultPairs.End(lifetime.Start)
	assert.True(t, ok)
	assert.Equal(t, lifetime.Stop, end)

	assert.True(t, lifetime.DefaultPairs.Opens(lifetime.Resume))
	assert.False(t, lifetime.DefaultPairs.Opens(lifetime.Destroy))
	_, ok = lifetime.DefaultPairs.End(lifetime.Pause)
	assert.False(t, ok)
}
