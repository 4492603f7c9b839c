package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/retrieve"
	"github.com/ppiankov/docket/internal/validate"
)

// Kind classifies a fatal pipeline failure
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUpstreamRateLimited
	KindUpstreamUnavailable
	KindConfiguration
	KindCanceled
)

// StatusClientClosedRequest is reported when the caller went away mid-analysis
const StatusClientClosedRequest = 499

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUpstreamRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "unavailable"
	case KindConfiguration:
		return "configuration"
	case KindCanceled:
		return "canceled"
	default:
		return "error"
	}
}

// Error is a fatal pipeline failure tagged with the phase it occurred in
type Error struct {
	Kind  Kind
	Phase model.Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err with the kind its cause implies
func classify(phase model.Phase, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	kind := KindInternal
	switch {
	case errors.Is(err, validate.ErrInvalidRequest):
		kind = KindInvalidInput
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, llm.ErrRateLimited):
		kind = KindUpstreamRateLimited
	case errors.Is(err, llm.ErrNotConfigured):
		kind = KindConfiguration
	case errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, retrieve.ErrRetrievalOutage),
		errors.Is(err, context.DeadlineExceeded):
		kind = KindUpstreamUnavailable
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify(model.PhaseUpload, err).Kind
}

// HTTPStatus maps err to the status returned to the caller
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the single error string shown to the caller
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInvalidInput:
		var pe *Error
		if errors.As(err, &pe) {
			return pe.Err.Error()
		}
		return err.Error()
	case KindUpstreamRateLimited:
		return "The analysis service is currently overloaded. Please try again in a few minutes."
	case KindConfiguration:
		return "The analysis service is not configured correctly. Please contact the administrator."
	case KindUpstreamUnavailable:
		return "The analysis service is temporarily unavailable. Please try again later."
	case KindCanceled:
		return "The analysis was cancelled before it completed."
	default:
		return "The analysis could not be completed due to an internal error."
	}
}
