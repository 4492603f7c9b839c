// Package gap compares the evidence a defendant holds against what each
// claim and its governing provisions require.
package gap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/docket/internal/extract"
	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/metrics"
	"github.com/ppiankov/docket/internal/model"
	"go.uber.org/zap"
)

var gapSchema = llm.Schema{
	Name:        "analyze_evidence_gaps",
	Description: "Compare required and provided evidence for each claim",
	Definition: json.RawMessage(`{
  "type": "object",
  "properties": {
    "evidence_analysis": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "claim_type": {"type": "string"},
          "required_evidence": {"type": "array", "items": {"type": "string"}},
          "provided_evidence": {"type": "array", "items": {"type": "string"}},
          "missing_evidence": {"type": "array", "items": {"type": "string"}},
          "legal_basis": {"type": "string"}
        },
        "required": ["claim_type", "required_evidence", "provided_evidence", "missing_evidence", "legal_basis"]
      }
    },
    "follow_up_questions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "question": {"type": "string"},
          "reason": {"type": "string"},
          "related_article": {"type": "string"}
        },
        "required": ["question", "reason"]
      }
    },
    "can_proceed": {"type": "boolean"}
  },
  "required": ["evidence_analysis", "follow_up_questions", "can_proceed"]
}`),
}

const gapSystem = `You are a legal analyst assisting the DEFENDANT of a complaint.
For each claim, determine what evidence the defense needs, what it already has, and what is missing.

RULES:
1. Base required evidence on the provisions listed. Cite the article in legal_basis.
2. provided_evidence may only name items from the evidence list.
3. Ask follow-up questions only for gaps that change the outcome.
4. Set can_proceed to true only when the evidence is sufficient for a reliable verdict.`

type gapOutput struct {
	EvidenceAnalysis  []model.EvidenceGap      `json:"evidence_analysis"`
	FollowUpQuestions []model.FollowUpQuestion `json:"follow_up_questions"`
	CanProceed        bool                     `json:"can_proceed"`
}

// Analyzer runs the evidence gap phase
type Analyzer struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewAnalyzer creates a new gap analyzer
func NewAnalyzer(provider llm.Provider, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{provider: provider, logger: logger}
}

// Analyze returns the gap analysis. It never fails: any error degrades to
// model.ConservativeGapAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, claims []model.Claim, statutes []model.StatuteMatch, evidence []model.EvidenceItem) model.GapAnalysis {
	out, err := llm.Submit[gapOutput](ctx, a.provider, llm.Request{
		System: gapSystem,
		Prompt: BuildPrompt(claims, statutes, evidence),
		Schema: gapSchema,
	})
	if err != nil {
		metrics.DegradedTotal.WithLabelValues(model.PhaseGapAnalysis.String()).Inc()
		a.logger.Warn("gap analysis failed, using conservative default",
			zap.Bool("rate_limited", llm.IsRateLimited(err)),
			zap.Error(err))
		return model.ConservativeGapAnalysis()
	}

	result := model.GapAnalysis{
		EvidenceAnalysis:  out.EvidenceAnalysis,
		FollowUpQuestions: cleanQuestions(out.FollowUpQuestions),
		CanProceed:        out.CanProceed,
	}
	return result.Normalize()
}

func cleanQuestions(qs []model.FollowUpQuestion) []model.FollowUpQuestion {
	out := make([]model.FollowUpQuestion, 0, len(qs))
	for _, q := range qs {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

// BuildPrompt renders claims, provisions and evidence for gap analysis
func BuildPrompt(claims []model.Claim, statutes []model.StatuteMatch, evidence []model.EvidenceItem) string {
	var b strings.Builder

	b.WriteString("Claims:\n")
	b.WriteString(DescribeClaims(claims))

	b.WriteString("\n\nRelevant provisions:\n")
	if len(statutes) == 0 {
		b.WriteString("(No provisions retrieved)")
	}
	for i, s := range statutes {
		article := s.Article()
		if article == "" {
			article = "n/a"
		}
		fmt.Fprintf(&b, "%d. [%s] Article %s (for %s, similarity %.2f): %s\n", i+1, s.Category, article, s.ClaimType, s.Similarity, s.Content)
	}

	b.WriteString("\n\nEvidence held by the defense:\n")
	b.WriteString(extract.DescribeEvidence(evidence))

	b.WriteString("\n\nReturn the gap analysis as JSON.")
	return b.String()
}

// DescribeClaims renders claims one per line
func DescribeClaims(claims []model.Claim) string {
	var b strings.Builder
	for i, c := range claims {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, c.ClaimType, c.Description)
		if c.AmountClaimed != nil {
			fmt.Fprintf(&b, " (amount claimed: %.2f)", *c.AmountClaimed)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
