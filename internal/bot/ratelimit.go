package bot

import (
	"sync"
	"time"
)

// RateLimiter implements a simple sliding window rate limiter per user.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[int64][]time.Time
	now         func() time.Time
}

// NewRateLimiter creates a new rate limiter. maxRequests <= 0 disables limiting.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[int64][]time.Time),
		now:         time.Now,
	}
}

// Allow checks if a request from the given user is allowed.
func (r *RateLimiter) Allow(userID int64) bool {
	if r.maxRequests <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	times := r.requests[userID]
	valid := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= r.maxRequests {
		r.requests[userID] = valid
		return false
	}

	r.requests[userID] = append(valid, now)
	return true
}

// Prune drops users with no requests inside the window.
func (r *RateLimiter) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for id, times := range r.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(r.requests, id)
		}
	}
}
