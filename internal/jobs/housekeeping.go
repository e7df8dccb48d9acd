package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DraftPurger removes stale broadcast drafts.
type DraftPurger interface {
	PurgeDrafts(ctx context.Context, ttl time.Duration) (int64, error)
}

// PurgeDrafts drops broadcast drafts nobody confirmed within ttl.
func PurgeDrafts(spec string, purger DraftPurger, ttl time.Duration, logger zerolog.Logger) Job {
	return Job{
		Name: "purge-drafts",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := purger.PurgeDrafts(ctx, ttl)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info().Int64("count", n).Msg("purged expired broadcast drafts")
			}
			return nil
		},
	}
}

// Gauges receives the periodically sampled counts.
type Gauges interface {
	SetAwayUsers(n int)
	SetPendingDeletions(n int)
}

// Counter returns a current count.
type Counter func(ctx context.Context) (int, error)

// RefreshGauges samples the away users and pending deletions.
func RefreshGauges(spec string, gauges Gauges, away, pending Counter) Job {
	return Job{
		Name: "refresh-gauges",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := away(ctx)
			if err != nil {
				return fmt.Errorf("count away users: %w", err)
			}
			gauges.SetAwayUsers(n)

			n, err = pending(ctx)
			if err != nil {
				return fmt.Errorf("count pending deletions: %w", err)
			}
			gauges.SetPendingDeletions(n)
			return nil
		},
	}
}

// Pruner drops idle rate limiter state.
type Pruner interface {
	Prune()
}

// PruneLimiter keeps the command rate limiter from growing without bound.
func PruneLimiter(spec string, p Pruner) Job {
	return Job{
		Name: "prune-limiter",
		Spec: spec,
		Run: func(context.Context) error {
			p.Prune()
			return nil
		},
	}
}
