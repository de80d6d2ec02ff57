// Package config loads the YAML configuration used by the safeio command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grokify/safeio"
	"github.com/grokify/safeio/compress"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level configuration file.
type Config struct {
	Backend       string            `yaml:"backend"`        // Registered backend name
	BackendConfig map[string]string `yaml:"backend_config"` // Passed to safeio.Open
	Retry         RetryConfig       `yaml:"retry"`
	Compression   CompressionConfig `yaml:"compression"`
	Log           LogConfig         `yaml:"log"`
}

// RetryConfig holds ReadWithRetry settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// CompressionConfig selects the codec and level for compress commands.
type CompressionConfig struct {
	Codec string `yaml:"codec"`
	Level string `yaml:"level"`
}

// LogConfig controls the command's log output on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a Config with the library defaults: the unrooted file
// backend, 20 attempts 300ms apart, gzip at the optimal level.
func Default() *Config {
	return &Config{
		Backend:       "file",
		BackendConfig: map[string]string{},
		Retry: RetryConfig{
			MaxAttempts: safeio.DefaultMaxAttempts,
			Delay:       safeio.DefaultRetryDelay,
		},
		Compression: CompressionConfig{
			Codec: "gzip",
			Level: compress.LevelOptimal.String(),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
// Keys missing from the file keep their default values.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.BackendConfig == nil {
		cfg.BackendConfig = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names. Codec names are checked against
// the compress registry, so codec packages must be imported first.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}

	if err := c.Retry.validate(); err != nil {
		return fmt.Errorf("%w: retry: %w", ErrInvalidConfig, err)
	}

	if _, err := compress.Lookup(c.Compression.Codec); err != nil {
		return fmt.Errorf("%w: compression: %w", ErrInvalidConfig, err)
	}
	if _, err := compress.ParseLevel(c.Compression.Level); err != nil {
		return fmt.Errorf("%w: compression: %w", ErrInvalidConfig, err)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log: format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

func (r RetryConfig) validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if r.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}

// RetryOptions converts the retry section to ReadWithRetry options.
func (r RetryConfig) RetryOptions() []safeio.RetryOption {
	return []safeio.RetryOption{
		safeio.WithMaxAttempts(r.MaxAttempts),
		safeio.WithDelay(r.Delay),
	}
}

// ParseLogLevel converts a level name to a slog.Level.
// An empty string is slog.LevelWarn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}
