package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/docket/internal/model"
)

// WriteJSON writes result as indented JSON to path, creating parent directories
func WriteJSON(result *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a short human-readable summary of result
func RenderSummary(w io.Writer, result *model.AnalysisResult) {
	v := result.Verdict

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Risk: %d/100 (%s)\n", v.RiskScore, v.RiskLevel)
	fmt.Fprintf(w, "Recommendation: %s\n", v.Recommendation)

	fmt.Fprintf(w, "\nClaims (%d):\n", len(result.Claims))
	for _, c := range result.Claims {
		line := fmt.Sprintf("  - %s: %s", c.ClaimType, c.Description)
		if c.AmountClaimed != nil {
			line += fmt.Sprintf(" [%.2f]", *c.AmountClaimed)
		}
		fmt.Fprintln(w, line)
	}

	if len(result.RelevantLaws) > 0 {
		fmt.Fprintf(w, "\nRelevant provisions (%d):\n", len(result.RelevantLaws))
		for _, s := range result.RelevantLaws {
			article := s.Article()
			if article == "" {
				article = "n/a"
			}
			fmt.Fprintf(w, "  - %s art. %s (%.2f)\n", s.Category, article, s.Similarity)
		}
	}

	if !result.GapAnalysis.CanProceed {
		fmt.Fprintln(w, "\nEvidence is insufficient for a reliable verdict.")
	}
	if n := len(result.GapAnalysis.FollowUpQuestions); n > 0 {
		fmt.Fprintf(w, "\nFollow-up questions (%d):\n", n)
		for _, q := range result.GapAnalysis.FollowUpQuestions {
			fmt.Fprintf(w, "  ? %s\n", q.Question)
		}
	}

	if v.Reasoning != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(v.Reasoning))
	}
	switch v.Recommendation {
	case model.RecommendFight:
		if v.DefenseBill != "" {
			fmt.Fprintf(w, "\nDefense:\n%s\n", v.DefenseBill)
		}
	case model.RecommendSettle:
		if v.SettlementAdvice != "" {
			fmt.Fprintf(w, "\nSettlement:\n%s\n", v.SettlementAdvice)
		}
	case model.RecommendNeedsMoreInfo:
	}
}
