package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/internal/config"
	"github.com/baxromumarov/lifescope/internal/report"
)

func (a *app) newScopeCmd() *cobra.Command {
	defaults := config.Default()
	var failAfter time.Duration
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Run a set of demo tasks on one scope and print how each ended",
		Long: `scope launches a fast task, a failing task, a slow task, a task that
succeeds on its third attempt and an async computation on one scope. With
--policy propagate the failure cancels the slow task; with supervise every
other task runs to completion.`,
		Example: `  lifescope scope --policy supervise
  lifescope scope --workers 2 --limit 1 -o yaml`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			return a.runScope(cmd.Context(), failAfter)
		}),
	}

	f := cmd.Flags()
	f.String("policy", defaults.Scope.Policy, "failure policy: propagate or supervise")
	f.Int("limit", defaults.Scope.Limit, "maximum concurrently running tasks (0 = unlimited)")
	f.Int("workers", defaults.Scope.Workers, "run tasks on a worker pool of this size (0 = one goroutine per task)")
	f.DurationVar(&failAfter, "fail-after", 20*time.Millisecond, "when the failing task fails")
	bindFlag(f, "policy", "scope.policy")
	bindFlag(f, "limit", "scope.limit")
	bindFlag(f, "workers", "scope.workers")
	return cmd
}

var errDemo = errors.New("demo failure")

func (a *app) runScope(ctx context.Context, failAfter time.Duration) error {
	policy, _ := lifescope.ParsePolicy(a.cfg.Scope.Policy)
	opts := []lifescope.Option{
		lifescope.WithName("demo"),
		lifescope.WithPolicy(policy),
		lifescope.WithLimit(a.cfg.Scope.Limit),
		lifescope.WithLogger(a.logger),
	}
	if n := a.cfg.Scope.Workers; n > 0 {
		pool := lifescope.NewPool(ctx, n,
			lifescope.WithPoolName("demo-pool"),
			lifescope.WithPoolErrorHandler(lifescope.LogErrors(a.logger)),
		)
		defer pool.Close()
		opts = append(opts, lifescope.WithExecutor(pool))
	}

	sc := lifescope.New(ctx, opts...)
	jobs := []*lifescope.Job{
		sc.Launch("fast", func(ctx context.Context) error {
			return pause(ctx, failAfter/4)
		}),
		sc.Launch("failing", func(ctx context.Context) error {
			if err := pause(ctx, failAfter); err != nil {
				return err
			}
			return errDemo
		}),
		sc.Launch("slow", func(ctx context.Context) error {
			return pause(ctx, 10*failAfter)
		}),
		sc.Launch("retrying", func(ctx context.Context) error {
			_, err := lifescope.TryTimes(ctx, 3, func(ctx context.Context, attempt int) (int, error) {
				if attempt < 3 {
					return 0, fmt.Errorf("attempt %d: %w", attempt, errDemo)
				}
				return attempt, nil
			})
			return err
		}),
	}
	answer := lifescope.Async(sc, "answer", func(ctx context.Context) (int, error) {
		return 42, pause(ctx, failAfter/2)
	})

	waitErr := sc.Wait()

	for _, j := range jobs {
		if err := a.out.Write(jobRecord(j)); err != nil {
			return err
		}
	}
	if err := a.out.Write(jobRecord(answer.Job())); err != nil {
		return err
	}

	result := "ok"
	if waitErr != nil {
		result = waitErr.Error()
	}
	if v, ok := answer.AwaitOrNull(ctx, lifescope.AwaitTimeout(time.Second)); ok {
		result = fmt.Sprintf("%s (answer %d)", result, v)
	}
	return a.out.Write(report.Summary{Command: "scope " + policy.String(), Result: result})
}

func jobRecord(j *lifescope.Job) report.Job {
	rec := report.Job{Name: j.Name(), State: j.State().String()}
	if err := j.Err(); err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
