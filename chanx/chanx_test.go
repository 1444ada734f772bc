package chanx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	ch := make(chan int, 1)

	err := Send(context.Background(), ch, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, <-ch)
}

func TestSend_ContextCanceled(t *testing.T) {
	ch := make(chan int)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Send(ctx, ch, 12)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSend_ReturnsCause(t *testing.T) {
	cause := errors.New("owner destroyed")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	err := Send(ctx, make(chan int), 1)
	assert.ErrorIs(t, err, cause)
}

func TestRecv(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "a"

	v, ok, err := Recv(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestRecv_Closed(t *testing.T) {
	ch := make(chan string)
	close(ch)

	v, ok, err := Recv(context.Background(), ch)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestRecv_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := Recv(ctx, make(chan int))
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
