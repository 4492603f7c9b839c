package llm

import "encoding/json"

var testSchema = Schema{
	Name:        "extract_claims",
	Description: "Extract claims",
	Definition:  json.RawMessage(`{"type":"object","properties":{"claims":{"type":"array","items":{"type":"object"}}},"required":["claims"]}`),
}

type claimsOutput struct {
	Claims []struct {
		ClaimType   string `json:"claim_type"`
		Description string `json:"description"`
	} `json:"claims"`
}
