// Package retry provides exponential backoff retry logic for chat-platform calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do executes fn with exponential backoff. Only retries if the error is retryable.
// A flood-wait hint (retry_after) on the error is honoured before the next attempt.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !perrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if wait := perrors.RetryAfter(err); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case <-t.C:
			}
		}
		return err
	}

	return backoff.Retry(op, newBackOff(ctx, cfg))
}

func newBackOff(ctx context.Context, cfg Config) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.MaxInterval = cfg.MaxDelay
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	if cfg.Jitter {
		exp.RandomizationFactor = 0.5
	} else {
		exp.RandomizationFactor = 0
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.MaxAttempts-1)), ctx)
}
