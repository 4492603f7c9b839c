package model

import "strings"

// UnknownClaimType marks the sentinel claim substituted when extraction output is unusable
const UnknownClaimType = "unknown"

// Claim represents a single legal claim asserted against the defendant
type Claim struct {
	ClaimType     string   `json:"claim_type" yaml:"claim_type"`                             // e.g. "unpaid_wages", "breach_of_contract"
	Description   string   `json:"description" yaml:"description"`                           // Plain-language summary of the claim
	AmountClaimed *float64 `json:"amount_claimed,omitempty" yaml:"amount_claimed,omitempty"` // Monetary amount, when one is stated
}

// IsSentinel reports whether the claim is the placeholder produced on extraction failure
func (c Claim) IsSentinel() bool {
	return c.ClaimType == UnknownClaimType
}

// Query returns the text embedded for statute retrieval
func (c Claim) Query() string {
	return strings.TrimSpace(c.ClaimType + " " + c.Description)
}

// SentinelClaim builds the placeholder claim used when no claims could be extracted
func SentinelClaim(description string) Claim {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Unable to identify specific claims from the complaint"
	}
	return Claim{
		ClaimType:   UnknownClaimType,
		Description: description,
	}
}
