// Package retry provides a small retry-with-backoff wrapper for calls to
// external collaborators (model APIs, Redis, price feeds). Only failures
// explicitly marked transient are retried; everything else propagates on
// the first attempt. Wrapped operations must be idempotent.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	logx "github.com/meterwatch-core/server/pkg/logger"
)

// ErrTransient is the sentinel every retryable failure matches via errors.Is.
var ErrTransient = errors.New("transient failure")

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err has been marked retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt; doubles per retry
	Jitter      bool          // randomize each delay in [delay/2, delay)
}

// Normalize fills zero values with usable defaults.
func (c Config) Normalize() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	return c
}

// Do invokes op until it succeeds, fails permanently, exhausts cfg.MaxAttempts,
// or ctx is cancelled. The last failure is returned on exhaustion.
func Do[T any](ctx context.Context, cfg Config, name string, op func(context.Context) (T, error)) (T, error) {
	cfg = cfg.Normalize()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter {
			wait = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
		}
		logx.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", wait).
			Err(err).
			Msg("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	logx.Error().
		Str("op", name).
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Retries exhausted")
	return zero, lastErr
}
