package gap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/docket/internal/llm"
	"github.com/ppiankov/docket/internal/llm/llmtest"
	"github.com/ppiankov/docket/internal/model"
)

var testClaims = []model.Claim{{ClaimType: "unpaid_wages", Description: "Final salary not paid"}}

func TestAnalyzer_Analyze(t *testing.T) {
	provider := llmtest.New().On("analyze_evidence_gaps", `{
		"evidence_analysis": [{
			"claim_type": "unpaid_wages",
			"required_evidence": ["payroll records", "termination order"],
			"provided_evidence": ["payslip.pdf"],
			"missing_evidence": ["termination order"],
			"legal_basis": "Article 140"
		}],
		"follow_up_questions": [
			{"question": "When was the final payment made?", "reason": "Timing of payment", "related_article": "140"},
			{"question": "  ", "reason": "blank"}
		],
		"can_proceed": false
	}`)

	got := NewAnalyzer(provider, nil).Analyze(context.Background(), testClaims, nil, nil)

	want := model.GapAnalysis{
		EvidenceAnalysis: []model.EvidenceGap{{
			ClaimType:        "unpaid_wages",
			RequiredEvidence: []string{"payroll records", "termination order"},
			ProvidedEvidence: []string{"payslip.pdf"},
			MissingEvidence:  []string{"termination order"},
			LegalBasis:       "Article 140",
		}},
		FollowUpQuestions: []model.FollowUpQuestion{
			{Question: "When was the final payment made?", Reason: "Timing of payment", RelatedArticle: "140"},
		},
		CanProceed: false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Gap analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzer_NilSlicesNormalized(t *testing.T) {
	provider := llmtest.New().On("analyze_evidence_gaps", `{"evidence_analysis":[{"claim_type":"x"}],"can_proceed":true}`)

	got := NewAnalyzer(provider, nil).Analyze(context.Background(), testClaims, nil, nil)
	if !got.CanProceed {
		t.Error("Expected can_proceed true")
	}
	if got.FollowUpQuestions == nil || got.EvidenceAnalysis[0].MissingEvidence == nil {
		t.Errorf("Expected nil slices replaced, got %+v", got)
	}
}

func TestAnalyzer_DegradesOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *llmtest.Provider
	}{
		{"malformed", llmtest.New().On("analyze_evidence_gaps", `{"evidence_analysis": "oops"`)},
		{"rate limited", llmtest.New().Fail("analyze_evidence_gaps", fmt.Errorf("429: %w", llm.ErrRateLimited))},
		{"unavailable", llmtest.New().Fail("analyze_evidence_gaps", llm.ErrUnavailable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAnalyzer(tt.provider, nil).Analyze(context.Background(), testClaims, nil, nil)
			if diff := cmp.Diff(model.ConservativeGapAnalysis(), got); diff != "" {
				t.Errorf("Expected conservative default (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	article := "140"
	amount := 1500.0
	prompt := BuildPrompt(
		[]model.Claim{{ClaimType: "unpaid_wages", Description: "Salary", AmountClaimed: &amount}},
		[]model.StatuteMatch{
			{ClaimType: "unpaid_wages", ArticleNumber: &article, Category: "labor", Content: "Pay on dismissal", Similarity: 0.82},
			{ClaimType: "unpaid_wages", Category: "labor", Content: "General duty", Similarity: 0.5},
		},
		[]model.EvidenceItem{{Name: "payslip.pdf", Type: "payslip"}},
	)

	for _, want := range []string{
		"1. unpaid_wages: Salary (amount claimed: 1500.00)",
		"1. [labor] Article 140 (for unpaid_wages, similarity 0.82): Pay on dismissal",
		"2. [labor] Article n/a",
		"1. payslip.pdf (type: payslip)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}

	if !strings.Contains(BuildPrompt(testClaims, nil, nil), "(No provisions retrieved)") {
		t.Error("Expected placeholder for missing provisions")
	}
}
