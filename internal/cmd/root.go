// Package cmd implements the lifescope command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zoobzio/capitan"

	"github.com/baxromumarov/lifescope"
	"github.com/baxromumarov/lifescope/internal/config"
	"github.com/baxromumarov/lifescope/internal/logging"
	"github.com/baxromumarov/lifescope/internal/report"
	"github.com/baxromumarov/lifescope/lifetime"
)

// app is the state shared by the subcommands of one root command.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	out    *report.Writer

	listeners []*capitan.Listener
}

// NewRootCmd builds the lifescope command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "lifescope",
		Short: "Lifecycle-scoped cancellable tasks and batch buffering",
		Long: `lifescope demonstrates scopes whose tasks are cancelled with the lifetime
that owns them, and a buffer task that delivers emitted values in
fixed-window batches.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is $HOME/.config/lifescope/config.yaml)")
	pf.String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	pf.String("log-format", "", "log format: text or json")
	pf.StringP("output", "o", "", "report format: text, json or yaml")
	_ = a.v.BindPFlag("config", pf.Lookup("config"))
	_ = a.v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("output", pf.Lookup("output"))

	root.AddCommand(
		a.newBufferCmd(),
		a.newFeedCmd(),
		a.newScopeCmd(),
		a.newLifetimeCmd(),
	)
	return root
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) initConfig() {
	// Defaults first so they apply without a config file.
	config.SetDefaults(a.v)

	if cfgFile := a.v.GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(config.ConfigDir())
		a.v.AddConfigPath(".")
	}

	a.v.AutomaticEnv()
	a.v.SetEnvPrefix("LIFESCOPE")
	// LIFESCOPE_BUFFER_DELAY for buffer.delay
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// viperKey is the flag annotation naming the config key a flag overrides.
const viperKey = "lifescope_viper_key"

// bindFlag marks flag name of f as overriding config key. Subcommands share
// keys, so the binding is made in setup for the command that runs.
func bindFlag(f *pflag.FlagSet, name, key string) {
	_ = f.SetAnnotation(name, viperKey, []string{key})
}

func (a *app) bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		if keys := fl.Annotations[viperKey]; len(keys) == 1 && err == nil {
			err = a.v.BindPFlag(keys[0], fl)
		}
	})
	return err
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.initConfig()
	if err := a.bindFlags(cmd); err != nil {
		return err
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.v.GetString("config") != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	out, err := report.NewWriter(cmd.OutOrStdout(), cfg.Output)
	if err != nil {
		return err
	}
	a.out = out

	a.observe()
	return nil
}

// run wraps a subcommand so the state built by setup is released however
// the command ends.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.teardown())
		}()
		return fn(cmd, args)
	}
}

func (a *app) teardown() error {
	for _, l := range a.listeners {
		l.Close()
	}
	a.listeners = nil
	if a.out == nil {
		return nil
	}
	return a.out.Close()
}

// observe logs lifescope signals at DEBUG level.
func (a *app) observe() {
	logger := a.logger
	hook := func(sig capitan.Signal, msg string, attrs func(e *capitan.Event) []any) {
		a.listeners = append(a.listeners, capitan.Hook(sig, func(_ context.Context, e *capitan.Event) {
			logger.Debug(msg, attrs(e)...)
		}))
	}

	hook(lifescope.TaskFailed, "task failed", func(e *capitan.Event) []any {
		scope, _ := lifescope.KeyScope.From(e)
		task, _ := lifescope.KeyTask.From(e)
		msg, _ := lifescope.KeyError.From(e)
		return []any{"scope", scope, "task", task, "error", msg}
	})
	hook(lifescope.BindingFired, "binding fired", func(e *capitan.Event) []any {
		name, _ := lifescope.KeyTask.From(e)
		ev, _ := lifescope.KeyEvent.From(e)
		return []any{"binding", name, "event", ev}
	})
	hook(lifescope.BufferFlushed, "batch delivered", func(e *capitan.Event) []any {
		name, _ := lifescope.KeyTask.From(e)
		size, _ := lifescope.KeyBatchSize.From(e)
		return []any{"task", name, "batch_size", size}
	})
}

// ignoreLifetimeEnd drops the error a lifetime-bound scope reports when its
// lifetime ended normally.
func ignoreLifetimeEnd(err error) error {
	if errors.Is(err, lifetime.ErrLifetimeEnded) {
		return nil
	}
	return err
}
