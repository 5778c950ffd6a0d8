// Package resilience retries transient failures with exponential backoff
// and trips a circuit breaker around flaky dependencies.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// RetryConfig shapes the backoff schedule. Zero fields fall back to
// 3 attempts starting at 100ms, doubling up to 10s with 10% jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	return c
}

// Delay is the pause after the given failed attempt, counting from 1.
// It never exceeds MaxDelay.
func (c RetryConfig) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	base := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d := base + base*c.JitterFraction*(2*rand.Float64()-1)
	switch {
	case d > float64(c.MaxDelay), math.IsInf(d, 0), math.IsNaN(d):
		return c.MaxDelay
	case d < 0:
		return c.InitialDelay
	}
	return time.Duration(d)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry stops at once and
// returns err itself.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, ctx is done
// or cfg.MaxAttempts is reached. A give-up error matches ErrExhausted and
// the last error fn returned.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := slog.Default().With("component", "retry", "operation", name)

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s: all %d attempts failed: %w: %w", name, cfg.MaxAttempts, ErrExhausted, err)
		}

		delay := cfg.Delay(attempt)
		log.Warn("attempt failed, backing off",
			"attempt", attempt, "max_attempts", cfg.MaxAttempts, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: gave up after %d attempts: %w", name, attempt, ctx.Err())
		}
	}
}
