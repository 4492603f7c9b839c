package retrieve

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/ppiankov/docket/internal/model"
)

// routerCostLimit bounds evaluation cost of a single rule
const routerCostLimit = 100000

type compiledRule struct {
	category string
	program  cel.Program
}

// CategoryRouter maps a claim to a statute category using CEL rules.
// Rules are tried in order; the first that evaluates to true wins.
type CategoryRouter struct {
	rules []compiledRule
}

// NewCategoryRouter compiles rules. Each rule sees a dynamic variable
// "claim" with fields claim_type, description and amount_claimed.
func NewCategoryRouter(rules []model.CategoryRule) (*CategoryRouter, error) {
	env, err := cel.NewEnv(cel.Variable("claim", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	r := &CategoryRouter{}
	for i, rule := range rules {
		if rule.Category == "" {
			return nil, fmt.Errorf("category rule %d: category is required", i)
		}
		ast, issues := env.Compile(rule.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("category rule %d (%s): compile error: %w", i, rule.Category, issues.Err())
		}
		prg, err := env.Program(ast, cel.CostLimit(routerCostLimit))
		if err != nil {
			return nil, fmt.Errorf("category rule %d (%s): program creation error: %w", i, rule.Category, err)
		}
		r.rules = append(r.rules, compiledRule{category: rule.Category, program: prg})
	}
	return r, nil
}

// Route returns the category for claim, or "" when no rule matches.
// Evaluation errors and non-boolean results count as no match.
func (r *CategoryRouter) Route(claim model.Claim) string {
	if r == nil || len(r.rules) == 0 {
		return ""
	}

	facts := map[string]any{
		"claim": map[string]any{
			"claim_type":     claim.ClaimType,
			"description":    claim.Description,
			"amount_claimed": amount(claim.AmountClaimed),
		},
	}

	for _, rule := range r.rules {
		out, _, err := rule.program.Eval(facts)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return rule.category
		}
	}
	return ""
}

func amount(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
