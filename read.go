package safeio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/grokify/mogo/log/slogutil"
)

const (
	// DefaultMaxAttempts is the number of read attempts ReadWithRetry makes.
	DefaultMaxAttempts = 20

	// DefaultRetryDelay is the pause between attempts after a recoverable failure.
	DefaultRetryDelay = 300 * time.Millisecond
)

// Sleeper pauses for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryOption configures ReadWithRetry.
type RetryOption func(*RetryConfig)

// RetryConfig holds the settings ReadWithRetry runs with.
type RetryConfig struct {
	// MaxAttempts is the total number of reads tried, at least 1.
	MaxAttempts int

	// Delay is the fixed pause after a recoverable failure. Zero means retry immediately.
	Delay time.Duration

	// Retryable decides whether a failure is followed by a backoff.
	// Failures it rejects still consume an attempt but are not waited on.
	// Default: IsRecoverable.
	Retryable func(error) bool

	// Sleep performs the backoff. Default: a timer that honors ctx.
	Sleep Sleeper

	// Logger receives one record per failed attempt.
	// If nil, a null logger is used.
	Logger *slog.Logger
}

// DefaultRetryConfig returns the settings used when no options are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
		Retryable:   IsRecoverable,
		Sleep:       sleepContext,
	}
}

// WithMaxAttempts sets the total number of read attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(c *RetryConfig) {
		c.MaxAttempts = n
	}
}

// WithDelay sets the pause between attempts.
func WithDelay(d time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Delay = d
	}
}

// WithRetryable replaces the recoverable-error classifier.
func WithRetryable(fn func(error) bool) RetryOption {
	return func(c *RetryConfig) {
		c.Retryable = fn
	}
}

// WithSleeper replaces the backoff implementation.
func WithSleeper(s Sleeper) RetryOption {
	return func(c *RetryConfig) {
		c.Sleep = s
	}
}

// WithLogger sets the logger for failed attempts.
func WithLogger(l *slog.Logger) RetryOption {
	return func(c *RetryConfig) {
		c.Logger = l
	}
}

func (c RetryConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slogutil.Null()
}

// Validate checks that the attempt bound is positive and the delay is not negative.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidArgument, c.MaxAttempts)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidArgument, c.Delay)
	}
	return nil
}

// RetryError indicates every read attempt failed.
// It matches ErrNoData and unwraps to the last failure.
type RetryError struct {
	Path     string
	Attempts int
	LastErr  error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("safeio: reading %s failed after %d attempts: %v", e.Path, e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error {
	return e.LastErr
}

// Is makes errors.Is(err, ErrNoData) true for exhausted reads.
func (e *RetryError) Is(target error) bool {
	return target == ErrNoData
}

// IsRetryError returns true if err is a RetryError.
func IsRetryError(err error) bool {
	var re *RetryError
	return errors.As(err, &re)
}

// ReadWithRetry reads the whole file at path from b, retrying when the
// storage misbehaves. It is meant for files on removable or network media
// that may be locked or briefly unavailable.
//
// Up to MaxAttempts reads are made, strictly one after another. A
// recoverable failure is followed by a pause of Delay before the next
// attempt, except after the final attempt. Any other failure is logged and
// the next attempt starts at once. When every attempt fails the result is
// nil data and a *RetryError matching ErrNoData.
//
// With the defaults the call blocks for at most (20-1) * 300ms plus the
// time spent reading. Cancelling ctx stops a pending backoff and returns
// ctx.Err().
func ReadWithRetry(ctx context.Context, b Backend, path string, opts ...RetryOption) ([]byte, error) {
	cfg := DefaultRetryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsRecoverable
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	log := cfg.logger().With("path", path)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readAll(ctx, b, path)
		if err == nil {
			if attempt > 1 {
				log.Debug("read succeeded after retry", "attempt", attempt)
			}
			return data, nil
		}
		lastErr = err

		if !cfg.Retryable(err) {
			log.Error("read attempt failed", "attempt", attempt, "error", err)
			continue
		}

		log.Warn("read attempt failed, will retry", "attempt", attempt, "delay", cfg.Delay, "error", err)
		if attempt == cfg.MaxAttempts {
			break
		}
		if err := cfg.Sleep(ctx, cfg.Delay); err != nil {
			return nil, err
		}
	}

	return nil, &RetryError{
		Path:     path,
		Attempts: cfg.MaxAttempts,
		LastErr:  lastErr,
	}
}

func readAll(ctx context.Context, b Backend, path string) ([]byte, error) {
	r, err := b.NewReader(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if closeErr := r.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
