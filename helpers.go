package lifescope

import (
	"context"
	"errors"
	"fmt"
)

// LaunchAll launches every fn on sc and returns their jobs in order. The
// tasks are named "launch-all[i]".
func LaunchAll(sc *Scope, fns ...TaskFunc) []*Job {
	jobs := make([]*Job, 0, len(fns))
	for i, fn := range fns {
		jobs = append(jobs, sc.Launch(fmt.Sprintf("launch-all[%d]", i), fn))
	}
	return jobs
}

// ForEach runs fn for each item concurrently within a new scope and waits
// for all of them.
//
//	err := lifescope.ForEach(ctx, ids, func(ctx context.Context, id string) error {
//	    return refresh(ctx, id)
//	}, lifescope.WithLimit(4))
func ForEach[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error, opts ...Option) error {
	return Run(ctx, func(sc *Scope) {
		for i, item := range items {
			sc.Launch(fmt.Sprintf("foreach[%d]", i), func(ctx context.Context) error {
				return fn(ctx, item)
			})
		}
	}, opts...)
}

// Map runs fn for each item concurrently and returns the results in input
// order. On error it returns nil and the scope's error.
func Map[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), opts ...Option) ([]R, error) {
	results := make([]R, len(items))
	err := Run(ctx, func(sc *Scope) {
		for i, item := range items {
			sc.Launch(fmt.Sprintf("map[%d]", i), func(ctx context.Context) error {
				r, err := fn(ctx, item)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
	}, opts...)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ErrNoAttempts is returned by [TryTimes] when times is not positive.
var ErrNoAttempts = errors.New("lifescope: no attempts")

// TryTimes calls fn up to times times until it succeeds, passing the
// 1-based attempt number. It returns the first successful result, or the
// last error when every attempt failed. It stops early with the context's
// cause when ctx is done.
func TryTimes[R any](ctx context.Context, times int, fn func(ctx context.Context, attempt int) (R, error)) (R, error) {
	var zero R
	if times <= 0 {
		return zero, ErrNoAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= times; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, errors.Join(context.Cause(ctx), lastErr)
			}
			return zero, context.Cause(ctx)
		}
		r, err := fn(ctx, attempt)
		if err == nil {
			return r, nil
		}
		lastErr = err
	}
	return zero, fmt.Errorf("lifescope: %d attempts failed: %w", times, lastErr)
}
