// Package health serves liveness, readiness and metrics for the bot.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Status is the result of one dependency probe.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) Status

// PingCheck adapts an error-returning probe such as a database ping.
func PingCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Status {
		if err := ping(ctx); err != nil {
			return StatusDown
		}
		return StatusOK
	}
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithTimeout bounds each probe. Default 5s.
func WithTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) { c.timeout = d }
}

// WithCacheTTL reuses results younger than ttl instead of probing again.
// Zero disables caching.
func WithCacheTTL(ttl time.Duration) CheckerOption {
	return func(c *Checker) { c.ttl = ttl }
}

// Checker runs the registered probes for the readiness endpoint.
type Checker struct {
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu      sync.Mutex
	checks  map[string]CheckFunc
	last    map[string]Status
	checked time.Time
}

// NewChecker creates a Checker with no probes.
func NewChecker(logger zerolog.Logger, opts ...CheckerOption) *Checker {
	c := &Checker{
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  logger.With().Str("component", "health").Logger(),
		checks:  map[string]CheckFunc{},
		last:    map[string]Status{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Register adds or replaces a named probe.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
	c.checked = time.Time{}
}

// Names lists the registered probes in order.
func (c *Checker) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunAll probes every dependency concurrently, or returns the cached
// results while they are fresh.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.Lock()
	if c.ttl > 0 && !c.checked.IsZero() && c.now().Sub(c.checked) < c.ttl {
		out := copyStatuses(c.last)
		c.mu.Unlock()
		return out
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for n, fn := range c.checks {
		checks[n] = fn
	}
	c.mu.Unlock()

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]Status, len(checks))
	)
	for name, fn := range checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			s := fn(probeCtx)
			if s != StatusOK {
				c.logger.Warn().Str("check", name).Str("status", string(s)).Msg("health check not ok")
			}
			mu.Lock()
			results[name] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	c.last = results
	c.checked = c.now()
	c.mu.Unlock()
	return copyStatuses(results)
}

// Last returns the most recent results without probing.
func (c *Checker) Last() map[string]Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyStatuses(c.last)
}

// IsReady reports whether no dependency is down. Degraded still counts as ready.
func (c *Checker) IsReady(ctx context.Context) bool {
	return ready(c.RunAll(ctx))
}

func ready(results map[string]Status) bool {
	for _, s := range results {
		if s == StatusDown {
			return false
		}
	}
	return true
}

func copyStatuses(in map[string]Status) map[string]Status {
	out := make(map[string]Status, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
