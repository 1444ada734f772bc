package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/internal/report"
	"github.com/baxromumarov/lifescope/lifetime"
)

var defaultEvents = []string{"create", "start", "resume", "pause", "stop", "destroy"}

func (a *app) newLifetimeCmd() *cobra.Command {
	var terminal string
	cmd := &cobra.Command{
		Use:   "lifetime [events...]",
		Short: "Dispatch lifetime events and show which bindings each one cancels",
		Long: `lifetime dispatches the given events (by default a full
create..destroy cycle) to a registry. Every phase-opening event gets a
binding with an inferred target, and a context waits for stop. Each line
lists the bindings the event cancelled.`,
		Example: `  lifescope lifetime
  lifescope lifetime create start destroy
  lifescope lifetime --terminal cleared cleared`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = defaultEvents
			}
			return a.runLifetime(cmd.Context(), lifetime.Event(terminal), args)
		}),
	}
	cmd.Flags().StringVar(&terminal, "terminal", string(lifetime.Destroy), "terminal event")
	return cmd
}

func (a *app) runLifetime(ctx context.Context, terminal lifetime.Event, events []string) error {
	reg := lifetime.NewRegistry(
		lifetime.WithName("demo"),
		lifetime.WithTerminal(terminal),
		lifetime.WithErrorHandler(lifescope.LogErrors(a.logger)),
	)

	// Bindings fire synchronously inside Dispatch.
	var fired []string
	record := func(name string) lifescope.Cancelable {
		return lifescope.CancelOnce(func() {
			fired = append(fired, name)
		})
	}

	stopCtx, cancel, err := lifetime.Context(ctx, reg, lifetime.Stop)
	if err != nil {
		return err
	}
	defer cancel()
	stopSeen := false

	for _, name := range events {
		ev := lifetime.Event(name)
		fired = nil

		rec := report.Event{Event: name}
		if err := reg.Dispatch(ev); err != nil {
			rec.Error = err.Error()
		}
		if !stopSeen && errors.Is(context.Cause(stopCtx), lifetime.ErrLifetimeEnded) {
			stopSeen = true
			fired = append(fired, "context@stop")
		}
		if lifetime.DefaultPairs.Opens(ev) && !reg.Terminated() {
			lifetime.Bind(reg, record("bound@"+name), lifetime.Named("bound@"+name))
		}

		rec.Fired = fired
		if err := a.out.Write(rec); err != nil {
			return err
		}
	}

	result := "running"
	if reg.Terminated() {
		result = "terminated"
	}
	return a.out.Write(report.Summary{Command: "lifetime", Result: result})
}
