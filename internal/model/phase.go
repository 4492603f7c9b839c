package model

// Phase is a stage of the analysis pipeline
type Phase int

const (
	PhaseUpload      Phase = iota // Input accepted, nothing run yet
	PhaseAnalyzing                // Claim extraction and statute retrieval (audit)
	PhaseGapAnalysis              // Evidence gap analysis
	PhaseVerdict                  // Verdict generation (terminal)
)

// String returns the wire name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseUpload:
		return "upload"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseGapAnalysis:
		return "gap_analysis"
	case PhaseVerdict:
		return "verdict"
	default:
		return "unknown"
	}
}

// Next returns the phase that follows p; ok is false for the terminal phase
func (p Phase) Next() (next Phase, ok bool) {
	switch p {
	case PhaseUpload:
		return PhaseAnalyzing, true
	case PhaseAnalyzing:
		return PhaseGapAnalysis, true
	case PhaseGapAnalysis:
		return PhaseVerdict, true
	default:
		return p, false
	}
}

// Terminal reports whether no phase follows p
func (p Phase) Terminal() bool {
	_, ok := p.Next()
	return !ok
}
