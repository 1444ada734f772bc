package chanx

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Interval sends clock.Now() on the returned channel after initialDelay
// and then every period until ctx is done, when the channel is closed.
// Sends block until received; the next period starts after the receive.
//
// Panics if period <= 0.
func Interval(ctx context.Context, clock clockz.Clock, initialDelay, period time.Duration) <-chan time.Time {
	if period <= 0 {
		panic("chanx: Interval requires period > 0")
	}
	if clock == nil {
		clock = clockz.RealClock
	}

	out := make(chan time.Time)
	go func() {
		defer close(out)

		if initialDelay > 0 && !sleep(ctx, clock, initialDelay) {
			return
		}

		for {
			if Send(ctx, out, clock.Now()) != nil {
				return
			}
			if !sleep(ctx, clock, period) {
				return
			}
		}
	}()
	return out
}

// Delay sends clock.Now() once after d and closes the returned channel.
// If ctx ends first the channel is closed without a value.
func Delay(ctx context.Context, clock clockz.Clock, d time.Duration) <-chan time.Time {
	if clock == nil {
		clock = clockz.RealClock
	}

	out := make(chan time.Time, 1)
	go func() {
		defer close(out)
		if d > 0 && !sleep(ctx, clock, d) {
			return
		}
		out <- clock.Now()
	}()
	return out
}

func sleep(ctx context.Context, clock clockz.Clock, d time.Duration) bool {
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return true
	case <-ctx.Done():
		return false
	}
}
