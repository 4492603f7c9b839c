package llm

import (
	"context"
	"fmt"
)

// Waiter blocks until a call for key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// throttledProvider paces outbound calls so bursts are smoothed before they
// reach the upstream service. It waits; it never retries.
type throttledProvider struct {
	Provider
	waiter Waiter
}

// WithLimiter wraps p so every Submit first waits on w, keyed by provider name
func WithLimiter(p Provider, w Waiter) Provider {
	if w == nil {
		return p
	}
	return &throttledProvider{Provider: p, waiter: w}
}

func (t *throttledProvider) Submit(ctx context.Context, req Request) (*Response, error) {
	if err := t.waiter.Wait(ctx, t.Provider.Name()); err != nil {
		return nil, fmt.Errorf("%s throttle: %w: %w", t.Provider.Name(), ErrUnavailable, err)
	}
	return t.Provider.Submit(ctx, req)
}
