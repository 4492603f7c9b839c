package model

import "strings"

// AnalysisRequest is the caller's input, accepted over HTTP or from a case file
type AnalysisRequest struct {
	Complaint           *string            `json:"complaint" yaml:"complaint" validate:"omitempty,max=50000"`
	Evidence            []EvidenceItem     `json:"evidence" yaml:"evidence" validate:"max=50,dive"`
	AdditionalInfo      string             `json:"additionalInfo,omitempty" yaml:"additional_info,omitempty" validate:"max=20000"`
	ConversationHistory []ConversationTurn `json:"conversationHistory,omitempty" yaml:"conversation_history,omitempty" validate:"max=100,dive"`
}

// ToComplaint converts the request into the pipeline's complaint value
func (r AnalysisRequest) ToComplaint() Complaint {
	c := Complaint{
		History: r.ConversationHistory,
		Notes:   strings.TrimSpace(r.AdditionalInfo),
	}
	if r.Complaint != nil {
		c.Text = strings.TrimSpace(*r.Complaint)
	}
	return c
}

// AnalysisResult is the success envelope
type AnalysisResult struct {
	Success      bool           `json:"success"`
	Claims       []Claim        `json:"claims"`
	RelevantLaws []StatuteMatch `json:"relevantLaws"`
	GapAnalysis  GapAnalysis    `json:"gapAnalysis"`
	Verdict      Verdict        `json:"verdict"`
}

// FailureResponse is the envelope returned on any failure
type FailureResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"` // Seconds, only on rate limiting
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
