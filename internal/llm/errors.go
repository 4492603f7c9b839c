package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited means the upstream service reported saturation (HTTP 429 or overloaded)
	ErrRateLimited = errors.New("reasoning service rate limited")

	// ErrUnavailable means the upstream service could not be reached or failed
	ErrUnavailable = errors.New("reasoning service unavailable")

	// ErrNotConfigured means credentials or provider settings are missing or rejected
	ErrNotConfigured = errors.New("reasoning service not configured")

	// ErrMalformedOutput means the service answered but the output did not match the schema
	ErrMalformedOutput = errors.New("reasoning output malformed")
)

// IsRateLimited reports whether err is an upstream saturation error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsMalformed reports whether err is a parse failure of model output
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedOutput)
}

// statusError classifies an upstream HTTP status into one of the sentinel errors
func statusError(provider string, status int, detail string) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests || status == 529:
		kind = ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrNotConfigured
	default:
		kind = ErrUnavailable
	}
	return fmt.Errorf("%s API error (%d): %s: %w", provider, status, detail, kind)
}

// transportError wraps a failure that produced no HTTP status
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request: %w: %w", provider, ErrUnavailable, err)
	}
	return fmt.Errorf("%s request: %w: %v", provider, ErrUnavailable, err)
}
