package lifetime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/lifetime"
)

func TestHost(t *testing.T) {
	host := lifetime.NewHost("screen")
	require.NoError(t, host.Dispatch(lifetime.Create))

	assert.Same(t, host.Scope(), host.Scope())
	assert.Equal(t, "screen", host.Scope().Name())

	started := make(chan struct{})
	job := host.Launch("refresh", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	require.NoError(t, host.Dispatch(lifetime.Start))
	c := &counter{}
	host.Bind(c)

	require.NoError(t, host.Dispatch(lifetime.Stop))
	assert.Equal(t, 1, c.count())
	assert.Equal(t, lifescope.JobRunning, job.State())

	require.NoError(t, host.Dispatch(lifetime.Destroy))
	<-job.Done()
	assert.Equal(t, lifescope.JobCancelled, job.State())
	assert.True(t, host.Lifetime().Terminated())
}

func TestHost_ScopeAfterTermination(t *testing.T) {
	host := lifetime.NewHostWith(lifetime.NewClearable(lifetime.WithName("vm")))
	require.NoError(t, host.Dispatch(lifetime.Cleared))

	job := host.Launch("late", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	<-job.Done()
	assert.Equal(t, lifescope.JobCancelled, job.State())
	assert.ErrorIs(t, host.Scope().Wait(), lifetime.ErrLifetimeEnded)
}
