package model

// RiskLevel grades the defendant's exposure
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether the level is one of the known grades
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Recommendation is the suggested course of action
type Recommendation string

const (
	RecommendFight         Recommendation = "fight"
	RecommendSettle        Recommendation = "settle"
	RecommendNeedsMoreInfo Recommendation = "needs_more_info"
)

// Valid reports whether the recommendation is one of the known actions
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendFight, RecommendSettle, RecommendNeedsMoreInfo:
		return true
	}
	return false
}

// Verdict is the final risk assessment
type Verdict struct {
	RiskScore        int            `json:"riskScore"`                  // 0-100
	RiskLevel        RiskLevel      `json:"riskLevel"`                  // low, medium, high, critical
	Recommendation   Recommendation `json:"recommendation"`             // fight, settle, needs_more_info
	Reasoning        string         `json:"reasoning"`                  // Narrative justification
	KeyStrengths     []string       `json:"keyStrengths"`               // Points in the defendant's favor
	KeyWeaknesses    []string       `json:"keyWeaknesses"`              // Points against the defendant
	DefenseBill      string         `json:"defenseBill,omitempty"`      // Only when recommendation is fight
	SettlementAdvice string         `json:"settlementAdvice,omitempty"` // Only when recommendation is settle
}

// Gated returns a copy whose optional fields agree with the recommendation
func (v Verdict) Gated() Verdict {
	if v.Recommendation != RecommendFight {
		v.DefenseBill = ""
	}
	if v.Recommendation != RecommendSettle {
		v.SettlementAdvice = ""
	}
	if v.KeyStrengths == nil {
		v.KeyStrengths = []string{}
	}
	if v.KeyWeaknesses == nil {
		v.KeyWeaknesses = []string{}
	}
	return v
}
