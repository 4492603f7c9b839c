// Probe program that runs claim extraction and statute embedding against the
// live upstreams, for checking credentials and model choices by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/docket/internal/embedding"
	"github.com/ppiankov/docket/internal/extract"
	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/model"
	"go.uber.org/zap"
)

const sampleComplaint = `I worked at the warehouse for two years and was fired last month
without any written notice. My last paycheck was never paid and I regularly
worked 50 hours a week without overtime.`

func main() {
	provider := flag.String("provider", "openai", "reasoning provider (openai, anthropic, ollama, gemini)")
	modelName := flag.String("model", "", "reasoning model (provider default when empty)")
	embedProvider := flag.String("embed-provider", "openai", "embedding provider (openai, genai)")
	flag.Parse()

	fmt.Println("=== Docket Upstream Probe ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := false

	fmt.Printf("Reasoning: %s\n", *provider)
	fmt.Println(strings.Repeat("-", 60))
	p, err := llm.NewProvider(ctx, llm.Config{
		Provider: *provider,
		Model:    *modelName,
		APIKey:   apiKey(*provider),
		BaseURL:  os.Getenv("OLLAMA_BASE_URL"),
		Timeout:  90 * time.Second,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		failed = true
	} else {
		claims, err := extract.NewClaimExtractor(p, nil).Extract(ctx, model.Complaint{Text: sampleComplaint})
		if err != nil {
			fmt.Printf("  ✗ extraction failed: %v\n", err)
			failed = true
		} else {
			fmt.Printf("  ✓ %d claims extracted\n", len(claims))
			for _, c := range claims {
				fmt.Printf("     - %s: %s\n", c.ClaimType, c.Description)
			}
		}
	}
	fmt.Println()

	fmt.Printf("Embedding: %s\n", *embedProvider)
	fmt.Println(strings.Repeat("-", 60))
	engine, err := embedding.NewEngine(ctx, embedding.Config{
		Provider: *embedProvider,
		APIKey:   apiKey(*embedProvider),
		Timeout:  30 * time.Second,
	})
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		failed = true
	} else {
		vec, err := engine.Embed(ctx, "unpaid overtime wages")
		if err != nil {
			fmt.Printf("  ✗ embedding failed: %v\n", err)
			failed = true
		} else {
			fmt.Printf("  ✓ %s returned %d dimensions\n", engine.Name(), len(vec))
		}
	}
	fmt.Println()

	if failed {
		os.Exit(1)
	}
	fmt.Println("=== Probe Complete ===")
}

func apiKey(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google", "genai":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
