package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Provider defines the interface for schema-constrained reasoning services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Submit sends a prompt and returns output constrained to req.Schema
	Submit(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Schema is a named JSON Schema the output must satisfy
type Schema struct {
	Name        string          // Tool / format name, [a-zA-Z0-9_-]
	Description string          // Short description shown to the model
	Definition  json.RawMessage // JSON Schema document
}

// Request contains the input for a reasoning call
type Request struct {
	// System is the instruction preamble
	System string

	// Prompt is the user message
	Prompt string

	// Schema constrains the shape of the output
	Schema Schema

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; zero uses the provider default of 0.2
	Temperature float64
}

// Response contains the schema-conformant output
type Response struct {
	// Content is the raw JSON document produced by the model
	Content json.RawMessage

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds reasoning provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, proxies, tests)
	BaseURL string

	// Timeout for API requests
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Logger receives availability diagnostics
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   90 * time.Second,
		MaxTokens: 4096,
	}
}

const defaultTemperature = 0.2

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4096
}

func (c Config) model(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func temperature(req Request) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return defaultTemperature
}
