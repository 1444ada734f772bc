package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/internal/feed"
	"github.com/baxromumarov/lifescope/internal/report"
	"github.com/baxromumarov/lifescope/lifetime"
)

type feedOptions struct {
	file      string
	fromStart bool
	duration  time.Duration
}

func (a *app) newFeedCmd() *cobra.Command {
	var opts feedOptions
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Batch the lines appended to a file until interrupted",
		Long: `feed follows a file and emits every appended line into a buffer task.
The task is bound to the command's lifetime: it stops when the command is
interrupted or --duration elapses.`,
		Example: `  lifescope feed --file /var/log/app.log --delay 2s
  lifescope feed --file events.txt --from-start --duration 10s --flush-on-cancel`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			return a.runFeed(cmd.Context(), opts)
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "file to follow")
	f.BoolVar(&opts.fromStart, "from-start", false, "emit the lines already in the file")
	f.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	f.Duration("delay", 0, "batching window (default from config)")
	f.Bool("flush-on-cancel", false, "deliver pending lines when stopping")
	_ = cmd.MarkFlagRequired("file")
	bindFlag(f, "delay", "buffer.delay")
	bindFlag(f, "flush-on-cancel", "buffer.flush_on_cancel")
	return cmd
}

func (a *app) runFeed(ctx context.Context, opts feedOptions) error {
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	watcher := feed.NewLineWatcher(opts.file, opts.fromStart, feed.OnError(func(err error) {
		a.logger.Warn("feed watcher error", "error", err)
	}))
	lines, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	host := lifetime.NewHost("feed",
		lifescope.WithLogger(a.logger),
		lifescope.WithPolicy(lifescope.Supervise),
	)
	for _, ev := range []lifetime.Event{lifetime.Create, lifetime.Start} {
		if err := host.Dispatch(ev); err != nil {
			return err
		}
	}

	// Bound while started, so the task stops at Stop.
	task, batches := a.newBatchTask(host)

	var count int
	forward := lifescope.NewActor(host.Scope(), "feed-forward", 64, func(_ context.Context, line string) error {
		if !task.Emit(line) {
			return fmt.Errorf("line dropped: %q", line)
		}
		count++
		return nil
	})

	a.logger.Info("following file", "file", opts.file, "delay", a.cfg.Buffer.Delay)
	for line := range lines {
		if err := forward.Send(ctx, line); err != nil {
			if ctx.Err() == nil && !errors.Is(err, lifescope.ErrActorClosed) {
				a.logger.Warn("forwarding stopped", "error", err)
			}
			break
		}
	}
	forward.Close()
	<-forward.Done()

	for _, ev := range []lifetime.Event{lifetime.Stop, lifetime.Destroy} {
		if err := host.Dispatch(ev); err != nil {
			return err
		}
	}
	<-task.Done()
	if err := ignoreLifetimeEnd(host.Scope().Wait()); err != nil {
		return err
	}

	return a.out.Write(report.Summary{
		Command: "feed",
		Result:  fmt.Sprintf("%d lines in %d batches", count, *batches),
	})
}
