package verdict

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/llm/llmtest"
	"github.com/ppiankov/docket/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClaims = []model.Claim{{ClaimType: "unpaid_wages", Description: "Final salary not paid"}}

func decide(t *testing.T, content string) model.Verdict {
	t.Helper()
	provider := llmtest.New().On("render_verdict", content)
	v, err := NewEngine(provider, nil).Decide(context.Background(), testClaims, model.ConservativeGapAnalysis(), nil)
	require.NoError(t, err)
	return v
}

func TestEngine_Decide(t *testing.T) {
	v := decide(t, `{
		"risk_score": 72,
		"risk_level": "high",
		"recommendation": "settle",
		"reasoning": "Payroll records support the claim.",
		"key_strengths": ["Claim is partly time-barred"],
		"key_weaknesses": ["No proof of payment", " "],
		"settlement_advice": "Offer 60% of the amount claimed."
	}`)

	assert.Equal(t, 72, v.RiskScore)
	assert.Equal(t, model.RiskHigh, v.RiskLevel)
	assert.Equal(t, model.RecommendSettle, v.Recommendation)
	assert.Equal(t, []string{"Claim is partly time-barred"}, v.KeyStrengths)
	assert.Equal(t, []string{"No proof of payment"}, v.KeyWeaknesses)
	assert.Equal(t, "Offer 60% of the amount claimed.", v.SettlementAdvice)
	assert.Empty(t, v.DefenseBill)
}

func TestEngine_GatesOptionalFields(t *testing.T) {
	v := decide(t, `{"risk_score": 20, "risk_level": "low", "recommendation": "fight", "reasoning": "r",
		"key_strengths": [], "key_weaknesses": [], "defense_bill": "Deny liability.", "settlement_advice": "Pay half."}`)
	assert.Equal(t, "Deny liability.", v.DefenseBill)
	assert.Empty(t, v.SettlementAdvice)

	v = decide(t, `{"risk_score": 40, "risk_level": "medium", "recommendation": "needs_more_info", "reasoning": "r",
		"key_strengths": [], "key_weaknesses": [], "defense_bill": "x", "settlement_advice": "y"}`)
	assert.Empty(t, v.DefenseBill)
	assert.Empty(t, v.SettlementAdvice)
}

func TestEngine_ClampsAndMapsUnknowns(t *testing.T) {
	v := decide(t, `{"risk_score": 140.4, "risk_level": "extreme", "recommendation": "appeal", "reasoning": "r",
		"key_strengths": null, "key_weaknesses": null, "defense_bill": "x"}`)

	assert.Equal(t, 100, v.RiskScore)
	assert.Equal(t, model.RiskCritical, v.RiskLevel)
	assert.Equal(t, model.RecommendNeedsMoreInfo, v.Recommendation)
	assert.Empty(t, v.DefenseBill)
	assert.NotNil(t, v.KeyStrengths)
	assert.NotNil(t, v.KeyWeaknesses)

	v = decide(t, `{"risk_score": -3, "risk_level": "LOW", "recommendation": "Fight", "reasoning": "r",
		"key_strengths": [], "key_weaknesses": []}`)
	assert.Equal(t, 0, v.RiskScore)
	assert.Equal(t, model.RiskLow, v.RiskLevel)
	assert.Equal(t, model.RecommendFight, v.Recommendation)
}

func TestEngine_MalformedDegrades(t *testing.T) {
	v := decide(t, `I think the defendant should settle.`)
	assert.Equal(t, Conservative(), v)
	assert.Equal(t, 50, v.RiskScore)
	assert.Equal(t, model.RiskMedium, v.RiskLevel)
	assert.Equal(t, model.RecommendNeedsMoreInfo, v.Recommendation)
}

func TestEngine_RateLimitedIsDistinguishable(t *testing.T) {
	provider := llmtest.New().Fail("render_verdict", fmt.Errorf("anthropic API error (429): overloaded: %w", llm.ErrRateLimited))

	_, err := NewEngine(provider, nil).Decide(context.Background(), testClaims, model.ConservativeGapAnalysis(), nil)
	require.Error(t, err)
	assert.True(t, llm.IsRateLimited(err))
	assert.Equal(t, 1, provider.CallCount("render_verdict"), "saturation must not be retried")
}

func TestEngine_UnavailableIsFatal(t *testing.T) {
	provider := llmtest.New().Fail("render_verdict", llm.ErrUnavailable)

	_, err := NewEngine(provider, nil).Decide(context.Background(), testClaims, model.ConservativeGapAnalysis(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrUnavailable))
	assert.False(t, llm.IsRateLimited(err))
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  model.RiskLevel
	}{
		{0, model.RiskLow}, {25, model.RiskLow}, {26, model.RiskMedium}, {50, model.RiskMedium},
		{51, model.RiskHigh}, {75, model.RiskHigh}, {76, model.RiskCritical}, {100, model.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levelFor(tt.score), "score %d", tt.score)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testClaims, model.GapAnalysis{
		EvidenceAnalysis: []model.EvidenceGap{{
			ClaimType:        "unpaid_wages",
			RequiredEvidence: []string{"payroll"},
			MissingEvidence:  []string{"payroll"},
			LegalBasis:       "Article 140",
		}},
		FollowUpQuestions: []model.FollowUpQuestion{{Question: "Was the salary paid late?"}},
		CanProceed:        false,
	}, nil)

	for _, want := range []string{
		"1. unpaid_wages: Final salary not paid",
		"- unpaid_wages (basis: Article 140)",
		"  provided: none",
		"- Was the salary paid late?",
		"Evidence sufficient to proceed: false",
		"(No evidence provided)",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}
