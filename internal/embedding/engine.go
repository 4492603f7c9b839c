// Package embedding turns text into fixed-length vectors for statute retrieval.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Engine generates vector embeddings for text
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name (provider and model)
	Name() string
}

// Config holds embedding engine configuration
type Config struct {
	Provider   string // "openai" or "genai"
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// NewEngine creates an embedding engine based on configuration
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIEngine(cfg)
	case "genai", "gemini", "google":
		return NewGenAIEngine(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, genai)", cfg.Provider)
	}
}
