package chanx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosable_Send(t *testing.T) {
	c := NewClosable[int](1)
	err := c.Send(-12)
	assert.NoError(t, err)

	err = c.TrySend(900)
	assert.EqualError(t, err, ErrBuffFull.Error())
}
func TestClosable_TrySend(t *testing.T) {
	c := NewClosable[int](2)
	err := c.TrySend(1)
	assert.NoError(t, err, "first try send error")

	err = c.TrySend(2)
	assert.NoError(t, err, "second try send error")

	err = c.TrySend(3)
	assert.EqualError(t, err, ErrBuffFull.Error())
}

func TestClosable_TrySendWithClose(t *testing.T) {
	c := NewClosable[int](2)
	err := c.TrySend(1)
	assert.NoError(t, err, "first try send error")
	c.Close() // close the channel and next TrySends must return ErrClosed error

	err = c.TrySend(2)
	assert.EqualError(t, err, ErrClosed.Error())

	err = c.TrySend(3)
	assert.EqualError(t, err, ErrClosed.Error())
}

func TestClosable_SendAfterClose(t *testing.T) {
	c := NewClosable[int](1)
	c.Close()
	c.Close()

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, c.Send(1), ErrClosed)
	})
	assert.True(t, c.Closed())
}

func TestClosable_CloseUnblocksSender(t *testing.T) {
	c := NewClosable[int](0)

	errc := make(chan error, 1)
	go func() {
		errc <- c.Send(1)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked sender was not released by Close")
	}
}

func TestClosable_SendContext(t *testing.T) {
	c := NewClosable[int](0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.SendContext(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosable_DoneClosed(t *testing.T) {
	c := NewClosable[int](0)
	c.Close()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
	_, ok := <-c.Chan()
	assert.False(t, ok)
}

func TestClosable_Len(t *testing.T) {
	c := NewClosable[string](4)
	assert.Zero(t, c.Len())

	for _, v := range []string{"create", "start", "stop"} {
		require.NoError(t, c.TrySend(v))
	}
	assert.Equal(t, 3, c.Len())

	assert.Equal(t, "create", <-c.Chan())
	assert.Equal(t, 2, c.Len())

	// Buffered values outlive Close, but Len no longer counts them.
	c.Close()
	assert.Zero(t, c.Len())

	var rest []string
	for v := range c.Chan() {
		rest = append(rest, v)
	}
	assert.Equal(t, []string{"start", "stop"}, rest)
}
