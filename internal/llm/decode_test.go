package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubProvider struct {
	content string
	err     error
}

func (s stubProvider) Name() string                     { return "stub" }
func (s stubProvider) IsAvailable(context.Context) bool { return true }
func (s stubProvider) Submit(context.Context, Request) (*Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Content: []byte(s.content)}, nil
}

func TestSubmit_NilProvider(t *testing.T) {
	_, err := Submit[claimsOutput](context.Background(), nil, Request{Schema: testSchema})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestSubmit_PassesThroughClassification(t *testing.T) {
	p := stubProvider{err: fmt.Errorf("upstream: %w", ErrRateLimited)}

	_, err := Submit[claimsOutput](context.Background(), p, Request{Schema: testSchema})
	if !IsRateLimited(err) {
		t.Fatalf("Expected rate limited error, got %v", err)
	}
	if IsMalformed(err) {
		t.Error("Rate limiting must not be reported as malformed output")
	}
}

func TestSubmit_Malformed(t *testing.T) {
	tests := []string{
		"",
		"not json",
		`{"claims": "not-an-array"}`,
		"```json\n{broken\n```",
	}

	for _, content := range tests {
		p := stubProvider{content: content}
		_, err := Submit[claimsOutput](context.Background(), p, Request{Schema: testSchema})
		if !IsMalformed(err) {
			t.Errorf("content %q: expected malformed error, got %v", content, err)
		}
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}\n"},
		{"```\n{\"a\":1}```", `{"a":1}`},
	}

	for _, tt := range tests {
		got := string(stripFence([]byte(tt.input)))
		if got != tt.want {
			t.Errorf("stripFence(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
