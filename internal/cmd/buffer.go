package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/buffer"
	"github.com/baxromumarov/lifescope/chanx"
	"github.com/baxromumarov/lifescope/internal/config"
	"github.com/baxromumarov/lifescope/internal/report"
	"github.com/baxromumarov/lifescope/lifetime"
)

func (a *app) newBufferCmd() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "buffer [values...]",
		Short: "Emit values into a buffer task and print each delivered batch",
		Example: `  lifescope buffer --delay 1s --interval 300ms a b c d e f
  lifescope buffer -o json --delay 50ms 1 2 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.runBuffer(cmd.Context(), args)
		}),
	}

	f := cmd.Flags()
	f.Duration("delay", defaults.Buffer.Delay, "batching window")
	f.Duration("interval", defaults.Buffer.Interval, "pause between emitted values")
	f.Bool("flush-on-cancel", defaults.Buffer.FlushOnCancel, "deliver pending values when the task is cancelled")
	bindFlag(f, "delay", "buffer.delay")
	bindFlag(f, "interval", "buffer.interval")
	bindFlag(f, "flush-on-cancel", "buffer.flush_on_cancel")
	return cmd
}

func (a *app) runBuffer(ctx context.Context, values []string) error {
	host := lifetime.NewHost("buffer",
		lifescope.WithLogger(a.logger),
		lifescope.WithPolicy(lifescope.Supervise),
	)
	if err := host.Dispatch(lifetime.Create); err != nil {
		return err
	}

	task, batches := a.newBatchTask(host)

	producer := host.Launch("producer", func(ctx context.Context) error {
		if a.cfg.Buffer.Interval <= 0 {
			for _, v := range values {
				task.Emit(v)
			}
			return nil
		}
		ticks := chanx.Interval(ctx, clockz.RealClock, 0, a.cfg.Buffer.Interval)
		for _, v := range values {
			if _, ok, err := chanx.Recv(ctx, ticks); err != nil || !ok {
				return context.Cause(ctx)
			}
			task.Emit(v)
		}
		return nil
	})
	if err := producer.Wait(ctx); err != nil {
		return err
	}

	// Let the last window close before ending the lifetime.
	poll := time.NewTicker(5 * time.Millisecond)
	for task.Pending() > 0 && ctx.Err() == nil {
		select {
		case <-poll.C:
		case <-ctx.Done():
		}
	}
	poll.Stop()

	if err := host.Dispatch(lifetime.Destroy); err != nil {
		return err
	}
	<-task.Done()
	if err := ignoreLifetimeEnd(host.Scope().Wait()); err != nil {
		return err
	}

	return a.out.Write(report.Summary{
		Command: "buffer",
		Result:  fmt.Sprintf("%d values in %d batches", len(values), *batches),
	})
}

// newBatchTask creates a buffer task on host's scope that writes every
// batch to the report and is cancelled with host. The returned counter is
// only read after the task is done.
func (a *app) newBatchTask(host *lifetime.Host) (*buffer.Task[string], *int) {
	opts := []buffer.Option{
		buffer.WithName("cli-buffer"),
		buffer.WithScope(host.Scope()),
		buffer.WithErrorHandler(lifescope.LogErrors(a.logger)),
	}
	if a.cfg.Buffer.FlushOnCancel {
		opts = append(opts, buffer.WithFlushOnCancel())
	}

	var seq int
	start := time.Now()
	task := buffer.New(a.cfg.Buffer.Delay, func(batch []string) error {
		seq++
		return a.out.Write(report.Batch{
			Seq:     seq,
			Values:  batch,
			Elapsed: time.Since(start),
		})
	}, opts...)
	return lifetime.BindTo(task, host.Lifetime(), lifetime.Named("cli-buffer")), &seq
}
