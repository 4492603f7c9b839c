package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/docket/internal/metrics"
)

// Submit sends req through p and decodes the output into T. Transport
// failures keep their classification; output that does not decode is
// reported as ErrMalformedOutput.
func Submit[T any](ctx context.Context, p Provider, req Request) (T, error) {
	var out T
	if p == nil {
		return out, fmt.Errorf("no reasoning provider: %w", ErrNotConfigured)
	}

	resp, err := p.Submit(ctx, req)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(p.Name(), req.Schema.Name, outcome(err)).Inc()
		return out, err
	}

	if err := decodeJSON(resp.Content, &out); err != nil {
		metrics.LLMCallsTotal.WithLabelValues(p.Name(), req.Schema.Name, "malformed").Inc()
		return out, fmt.Errorf("decode %s output: %w: %v", req.Schema.Name, ErrMalformedOutput, err)
	}

	metrics.LLMCallsTotal.WithLabelValues(p.Name(), req.Schema.Name, "ok").Inc()
	return out, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	default:
		return "unavailable"
	}
}

// decodeJSON decodes content, tolerating a surrounding markdown code fence
func decodeJSON(content []byte, v any) error {
	content = bytes.TrimSpace(stripFence(content))
	if len(content) == 0 {
		return errors.New("empty output")
	}
	return json.Unmarshal(content, v)
}

func stripFence(content []byte) []byte {
	content = bytes.TrimSpace(content)
	if !bytes.HasPrefix(content, []byte("```")) {
		return content
	}
	content = content[3:]
	if nl := bytes.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	if end := bytes.LastIndex(content, []byte("```")); end >= 0 {
		content = content[:end]
	}
	return content
}
