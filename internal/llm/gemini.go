package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/docket/internal/logging"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini models
// using responseJsonSchema structured output
type GeminiProvider struct {
	client *genai.Client
	config Config
	logger *zap.Logger
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required: %w", ErrNotConfigured)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
		logger: logging.OrNop(config.Logger),
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks the configured model can be resolved
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Models.Get(ctx, p.config.model(Request{}, "gemini-2.5-flash"), nil); err != nil {
		p.logger.Warn("Gemini API check failed", zap.Error(err))
		return false
	}
	return true
}

// Submit generates schema-constrained output using GenerateContent
func (p *GeminiProvider) Submit(ctx context.Context, req Request) (*Response, error) {
	model := p.config.model(req, "gemini-2.5-flash")

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout(90*time.Second))
	defer cancel()

	temp := float32(temperature(req))
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: req.Schema.Definition,
		MaxOutputTokens:    int32(p.config.maxTokens(req)),
		Temperature:        &temp,
	}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctxWithTimeout, model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return nil, classifyGenAIError(err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return nil, fmt.Errorf("empty content from Gemini: %w", ErrMalformedOutput)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Response{
		Content:    []byte(content),
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

// classifyGenAIError maps GenAI errors onto the reasoning sentinels
func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("Gemini", apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError("Gemini", apiErrPtr.Code, apiErrPtr.Message)
	}
	return transportError("Gemini", err)
}
