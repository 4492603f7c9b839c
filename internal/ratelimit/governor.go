// Package ratelimit implements the fixed-window rate governor that bounds how
// often a single caller may start an analysis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/docket/internal/metrics"
)

// Policy is a fixed window of at most MaxRequests per Window
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of a single check
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// RetryAfterSeconds rounds ResetIn up to whole seconds, never below one
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.ResetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Entry is the window state for one identifier
type Entry struct {
	Count     int
	ResetTime time.Time
}

// Store holds window state. Take must apply the fixed-window rule atomically
// per key: a missing or expired entry restarts at count 1, an entry at or above
// the limit rejects without incrementing, otherwise the count is incremented.
type Store interface {
	Take(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error)
}

// Governor checks callers against a policy using an injected store
type Governor struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// Option configures a Governor
type Option func(*Governor)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		g.now = now
	}
}

// NewGovernor creates a new governor
func NewGovernor(store Store, policy Policy, opts ...Option) (*Governor, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if policy.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %v", policy.Window)
	}
	if policy.MaxRequests <= 0 {
		return nil, fmt.Errorf("rate limit max requests must be positive, got %d", policy.MaxRequests)
	}

	g := &Governor{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Policy returns the governor's policy
func (g *Governor) Policy() Policy {
	return g.policy
}

// Check records a request for identifier and reports whether it is allowed
func (g *Governor) Check(ctx context.Context, identifier string) (Decision, error) {
	d, err := g.store.Take(ctx, identifier, g.policy, g.now())
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !d.Allowed {
		metrics.RateLimitRejectionsTotal.Inc()
	}
	return d, nil
}
