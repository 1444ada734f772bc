// Package config holds the lifescope CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// validate is the shared validator instance.
var validate = validator.New()

// Config is the complete CLI configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Buffer  BufferConfig  `mapstructure:"buffer"`
	Scope   ScopeConfig   `mapstructure:"scope"`
	// Output is the report format: "text", "json" or "yaml".
	Output string `mapstructure:"output" validate:"oneof=text json yaml"`
}

// LoggingConfig controls the slog logger.
type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR (any case).
	Level string `mapstructure:"level" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// BufferConfig controls the buffer task used by the buffer and feed
// commands.
type BufferConfig struct {
	// Delay is the batching window.
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
	// Interval spaces the values emitted by the buffer command.
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	// FlushOnCancel delivers pending values when the task is cancelled.
	FlushOnCancel bool `mapstructure:"flush_on_cancel"`
}

// ScopeConfig controls the scope used by the scope command.
type ScopeConfig struct {
	// Policy is "propagate" or "supervise".
	Policy string `mapstructure:"policy" validate:"oneof=propagate supervise"`
	// Limit bounds concurrently running tasks (0 = unlimited).
	Limit int `mapstructure:"limit" validate:"gte=0"`
	// Workers runs tasks on a pool of that size (0 = goroutine per task).
	Workers int `mapstructure:"workers" validate:"gte=0,lte=1024"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Buffer: BufferConfig{
			Delay:    time.Second,
			Interval: 100 * time.Millisecond,
		},
		Scope: ScopeConfig{
			Policy: "propagate",
		},
		Output: "text",
	}
}

// SetDefaults registers every default with v so they apply without a
// config file.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("buffer.delay", defaults.Buffer.Delay)
	v.SetDefault("buffer.interval", defaults.Buffer.Interval)
	v.SetDefault("buffer.flush_on_cancel", defaults.Buffer.FlushOnCancel)

	v.SetDefault("scope.policy", defaults.Scope.Policy)
	v.SetDefault("scope.limit", defaults.Scope.Limit)
	v.SetDefault("scope.workers", defaults.Scope.Workers)

	v.SetDefault("output", defaults.Output)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConfigDir returns the default configuration directory,
// $HOME/.config/lifescope.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lifescope")
}
