package model

// EvidenceGap describes what one claim needs versus what was supplied
type EvidenceGap struct {
	ClaimType        string   `json:"claim_type"`
	RequiredEvidence []string `json:"required_evidence"`
	ProvidedEvidence []string `json:"provided_evidence"`
	MissingEvidence  []string `json:"missing_evidence"`
	LegalBasis       string   `json:"legal_basis"`
}

// FollowUpQuestion is a question to put to the defendant to close a gap
type FollowUpQuestion struct {
	Question       string `json:"question"`
	Reason         string `json:"reason"`
	RelatedArticle string `json:"related_article"`
}

// GapAnalysis is the output of the evidence gap phase
type GapAnalysis struct {
	EvidenceAnalysis  []EvidenceGap      `json:"evidenceAnalysis"`
	FollowUpQuestions []FollowUpQuestion `json:"followUpQuestions"`
	CanProceed        bool               `json:"canProceed"`
}

// ConservativeGapAnalysis is the fallback used when gap analysis fails
func ConservativeGapAnalysis() GapAnalysis {
	return GapAnalysis{
		EvidenceAnalysis:  []EvidenceGap{},
		FollowUpQuestions: []FollowUpQuestion{},
		CanProceed:        false,
	}
}

// Normalize returns a copy whose JSON form never carries null arrays.
// The receiver's slices are not modified.
func (g GapAnalysis) Normalize() GapAnalysis {
	g.EvidenceAnalysis = append([]EvidenceGap{}, g.EvidenceAnalysis...)
	if g.FollowUpQuestions == nil {
		g.FollowUpQuestions = []FollowUpQuestion{}
	}
	for i := range g.EvidenceAnalysis {
		gap := &g.EvidenceAnalysis[i]
		if gap.RequiredEvidence == nil {
			gap.RequiredEvidence = []string{}
		}
		if gap.ProvidedEvidence == nil {
			gap.ProvidedEvidence = []string{}
		}
		if gap.MissingEvidence == nil {
			gap.MissingEvidence = []string{}
		}
	}
	return g
}
