// Package resilience holds the fault-tolerance helpers used around the
// service's external calls: exponential-backoff retry for document
// fetches, a circuit breaker for the query cache and a timeout wrapper for
// corpus loads.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped on
// the attempt that produced it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx is done
// or cfg.MaxAttempts is reached. Zero fields in cfg take defaults.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = withDefaults(cfg)
	logger := slog.Default().With("component", "retry", "operation", name)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
		delay := backoff(attempt, cfg)
		logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"error", lastErr,
			"next_delay", delay,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}
	return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, lastErr)
}

func withDefaults(cfg RetryConfig) RetryConfig {
	d := defaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = d.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = d.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = d.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	if d < 0 {
		d = float64(cfg.InitialDelay)
	}
	return time.Duration(d)
}
