// Package verdict produces the final risk assessment for the defendant.
package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/docket/internal/extract"
	"github.com/ppiankov/docket/internal/gap"
	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/metrics"
	"github.com/ppiankov/docket/internal/model"
	"go.uber.org/zap"
)

var verdictSchema = llm.Schema{
	Name:        "render_verdict",
	Description: "Assess the defendant's risk and recommend a course of action",
	Definition: json.RawMessage(`{
  "type": "object",
  "properties": {
    "risk_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "risk_level": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
    "recommendation": {"type": "string", "enum": ["fight", "settle", "needs_more_info"]},
    "reasoning": {"type": "string"},
    "key_strengths": {"type": "array", "items": {"type": "string"}},
    "key_weaknesses": {"type": "array", "items": {"type": "string"}},
    "defense_bill": {"type": "string", "description": "Outline of the defense, only when recommending fight"},
    "settlement_advice": {"type": "string", "description": "Settlement terms to pursue, only when recommending settle"}
  },
  "required": ["risk_score", "risk_level", "recommendation", "reasoning", "key_strengths", "key_weaknesses"]
}`),
}

const verdictSystem = `You are a senior litigator advising the DEFENDANT of a complaint.
Assess how likely the complainant is to prevail and what the defendant should do.

RULES:
1. risk_score is 0-100, where 100 means the complainant almost certainly prevails.
2. risk_level: low (0-25), medium (26-50), high (51-75), critical (76-100).
3. recommendation is fight, settle or needs_more_info.
4. Include defense_bill only when recommending fight, settlement_advice only when recommending settle.
5. When the gap analysis says the evidence is insufficient, weigh that in the reasoning.`

type verdictOutput struct {
	RiskScore        float64  `json:"risk_score"`
	RiskLevel        string   `json:"risk_level"`
	Recommendation   string   `json:"recommendation"`
	Reasoning        string   `json:"reasoning"`
	KeyStrengths     []string `json:"key_strengths"`
	KeyWeaknesses    []string `json:"key_weaknesses"`
	DefenseBill      string   `json:"defense_bill"`
	SettlementAdvice string   `json:"settlement_advice"`
}

// Conservative is the verdict used when the model output cannot be used
func Conservative() model.Verdict {
	return model.Verdict{
		RiskScore:      50,
		RiskLevel:      model.RiskMedium,
		Recommendation: model.RecommendNeedsMoreInfo,
		Reasoning:      "The assessment could not be completed reliably. More information is needed before deciding.",
		KeyStrengths:   []string{},
		KeyWeaknesses:  []string{},
	}
}

// Engine runs the verdict phase
type Engine struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewEngine creates a new verdict engine
func NewEngine(provider llm.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{provider: provider, logger: logger}
}

// Decide returns the verdict. Transport failures, including saturation
// (llm.ErrRateLimited), are returned unretried. Malformed output degrades
// to Conservative.
func (e *Engine) Decide(ctx context.Context, claims []model.Claim, gaps model.GapAnalysis, evidence []model.EvidenceItem) (model.Verdict, error) {
	out, err := llm.Submit[verdictOutput](ctx, e.provider, llm.Request{
		System: verdictSystem,
		Prompt: BuildPrompt(claims, gaps, evidence),
		Schema: verdictSchema,
	})
	if err != nil {
		if llm.IsMalformed(err) {
			metrics.DegradedTotal.WithLabelValues(model.PhaseVerdict.String()).Inc()
			e.logger.Warn("verdict output malformed, using conservative verdict", zap.Error(err))
			return Conservative(), nil
		}
		return model.Verdict{}, fmt.Errorf("render verdict: %w", err)
	}

	return normalize(out), nil
}

// normalize clamps the score into range and maps unknown enums to safe values
func normalize(out verdictOutput) model.Verdict {
	score := out.RiskScore
	if math.IsNaN(score) {
		score = 50
	}
	score = math.Max(0, math.Min(100, math.Round(score)))

	level := model.RiskLevel(strings.ToLower(strings.TrimSpace(out.RiskLevel)))
	if !level.Valid() {
		level = levelFor(int(score))
	}

	rec := model.Recommendation(strings.ToLower(strings.TrimSpace(out.Recommendation)))
	if !rec.Valid() {
		rec = model.RecommendNeedsMoreInfo
	}

	v := model.Verdict{
		RiskScore:        int(score),
		RiskLevel:        level,
		Recommendation:   rec,
		Reasoning:        strings.TrimSpace(out.Reasoning),
		KeyStrengths:     nonEmpty(out.KeyStrengths),
		KeyWeaknesses:    nonEmpty(out.KeyWeaknesses),
		DefenseBill:      strings.TrimSpace(out.DefenseBill),
		SettlementAdvice: strings.TrimSpace(out.SettlementAdvice),
	}
	return v.Gated()
}

// levelFor maps a score onto the standard bands
func levelFor(score int) model.RiskLevel {
	switch {
	case score <= 25:
		return model.RiskLow
	case score <= 50:
		return model.RiskMedium
	case score <= 75:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BuildPrompt renders claims, gap analysis and evidence for the verdict
func BuildPrompt(claims []model.Claim, gaps model.GapAnalysis, evidence []model.EvidenceItem) string {
	var b strings.Builder

	b.WriteString("Claims:\n")
	b.WriteString(gap.DescribeClaims(claims))

	b.WriteString("\n\nEvidence gap analysis:\n")
	if len(gaps.EvidenceAnalysis) == 0 {
		b.WriteString("(Not available)\n")
	}
	for _, g := range gaps.EvidenceAnalysis {
		fmt.Fprintf(&b, "- %s (basis: %s)\n", g.ClaimType, orNone(g.LegalBasis))
		fmt.Fprintf(&b, "  required: %s\n", joinOrNone(g.RequiredEvidence))
		fmt.Fprintf(&b, "  provided: %s\n", joinOrNone(g.ProvidedEvidence))
		fmt.Fprintf(&b, "  missing: %s\n", joinOrNone(g.MissingEvidence))
	}
	if len(gaps.FollowUpQuestions) > 0 {
		b.WriteString("Open questions:\n")
		for _, q := range gaps.FollowUpQuestions {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
	}
	fmt.Fprintf(&b, "Evidence sufficient to proceed: %t\n", gaps.CanProceed)

	b.WriteString("\nEvidence held by the defense:\n")
	b.WriteString(extract.DescribeEvidence(evidence))

	b.WriteString("\n\nReturn the verdict as JSON.")
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
