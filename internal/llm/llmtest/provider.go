// Package llmtest provides a scripted reasoning provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/docket/internal/llm"
)

// Reply is the scripted outcome of one call
type Reply struct {
	Content string
	Err     error
}

// Provider answers Submit calls from a script keyed by schema name
type Provider struct {
	mu      sync.Mutex
	replies map[string]Reply
	calls   []llm.Request
}

// New creates a scripted provider
func New() *Provider {
	return &Provider{replies: make(map[string]Reply)}
}

// On scripts the reply for schema
func (p *Provider) On(schema string, content string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[schema] = Reply{Content: content}
	return p
}

// Fail scripts an error for schema
func (p *Provider) Fail(schema string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[schema] = Reply{Err: err}
	return p
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "scripted"
}

// IsAvailable always reports true
func (p *Provider) IsAvailable(context.Context) bool {
	return true
}

// Submit returns the scripted reply for req.Schema.Name
func (p *Provider) Submit(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, req)
	reply, ok := p.replies[req.Schema.Name]
	p.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no scripted reply for %q: %w", req.Schema.Name, llm.ErrUnavailable)
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.Response{Content: []byte(reply.Content), Model: "scripted"}, nil
}

// Calls returns every request received so far
func (p *Provider) Calls() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many requests used schema
func (p *Provider) CallCount(schema string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Schema.Name == schema {
			n++
		}
	}
	return n
}
