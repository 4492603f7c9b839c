// Package extract turns a complaint into structured claims and prepares
// evidence text for prompts.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/metrics"
	"github.com/ppiankov/docket/internal/model"
	"go.uber.org/zap"
)

// sentinelDescriptionLimit bounds the complaint text copied into the sentinel claim
const sentinelDescriptionLimit = 500

var claimsSchema = llm.Schema{
	Name:        "extract_claims",
	Description: "List every distinct legal claim asserted in the complaint",
	Definition: json.RawMessage(`{
  "type": "object",
  "properties": {
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "claim_type": {"type": "string", "description": "Short snake_case category, e.g. unpaid_wages"},
          "description": {"type": "string", "description": "One-sentence summary of the claim"},
          "amount_claimed": {"type": "number", "description": "Amount demanded, if stated"}
        },
        "required": ["claim_type", "description"]
      }
    }
  },
  "required": ["claims"]
}`),
}

const claimsSystem = `You are a legal analyst assisting the DEFENDANT of a complaint.
Identify the claims the complainant asserts. Do not judge their merit.

RULES:
1. One entry per distinct claim, in the order they appear.
2. claim_type is a short snake_case label (e.g. unpaid_wages, wrongful_dismissal, breach_of_contract).
3. Include amount_claimed only when the complaint states a figure.
4. Do not invent claims that are not asserted.`

type claimsOutput struct {
	Claims []model.Claim `json:"claims"`
}

// ClaimExtractor extracts claims from a complaint through a reasoning provider
type ClaimExtractor struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(provider llm.Provider, logger *zap.Logger) *ClaimExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimExtractor{provider: provider, logger: logger}
}

// Extract returns the claims asserted in complaint, in order. Output that
// cannot be used yields a single sentinel claim. Transport failures are
// returned as errors.
func (e *ClaimExtractor) Extract(ctx context.Context, complaint model.Complaint) ([]model.Claim, error) {
	out, err := llm.Submit[claimsOutput](ctx, e.provider, llm.Request{
		System: claimsSystem,
		Prompt: BuildClaimsPrompt(complaint),
		Schema: claimsSchema,
	})
	if err != nil {
		if !llm.IsMalformed(err) {
			return nil, fmt.Errorf("extract claims: %w", err)
		}
		return e.fallback(complaint, err), nil
	}

	claims := cleanClaims(out.Claims)
	if len(claims) == 0 {
		return e.fallback(complaint, fmt.Errorf("no claims in output: %w", llm.ErrMalformedOutput)), nil
	}
	return claims, nil
}

func (e *ClaimExtractor) fallback(complaint model.Complaint, cause error) []model.Claim {
	metrics.DegradedTotal.WithLabelValues(model.PhaseAnalyzing.String()).Inc()
	e.logger.Warn("claim extraction output unusable, substituting sentinel claim", zap.Error(cause))
	return []model.Claim{model.SentinelClaim(truncateRunes(complaintText(complaint), sentinelDescriptionLimit))}
}

// cleanClaims drops entries without a type or description and normalizes labels
func cleanClaims(claims []model.Claim) []model.Claim {
	out := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		c.ClaimType = strings.TrimSpace(c.ClaimType)
		c.Description = strings.TrimSpace(c.Description)
		if c.ClaimType == "" && c.Description == "" {
			continue
		}
		if c.ClaimType == "" {
			c.ClaimType = model.UnknownClaimType
		}
		if c.AmountClaimed != nil && *c.AmountClaimed < 0 {
			c.AmountClaimed = nil
		}
		out = append(out, c)
	}
	return out
}

// complaintText returns the complaint text, or the caller's side of the
// conversation when no text was given
func complaintText(c model.Complaint) string {
	if strings.TrimSpace(c.Text) != "" {
		return collapseSpace(c.Text)
	}
	var parts []string
	for _, turn := range c.History {
		if turn.Role == "user" {
			parts = append(parts, turn.Content)
		}
	}
	return collapseSpace(strings.Join(parts, " "))
}

// BuildClaimsPrompt renders the complaint, conversation and notes for extraction
func BuildClaimsPrompt(c model.Complaint) string {
	var b strings.Builder

	b.WriteString("Complaint:\n")
	if strings.TrimSpace(c.Text) != "" {
		b.WriteString(strings.TrimSpace(c.Text))
	} else {
		b.WriteString("(No complaint text; see conversation)")
	}
	b.WriteString("\n")

	if len(c.History) > 0 {
		b.WriteString("\nConversation:\n")
		b.WriteString(Transcript(c.History))
		b.WriteString("\n")
	}

	if c.Notes != "" {
		b.WriteString("\nAdditional information:\n")
		b.WriteString(c.Notes)
		b.WriteString("\n")
	}

	b.WriteString("\nReturn the claims as JSON.")
	return b.String()
}

// Transcript renders conversation turns one per line
func Transcript(turns []model.ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, strings.TrimSpace(t.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}
