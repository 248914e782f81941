package decision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/rules"
)

// RuleEngine evaluates the enabled rule set against a request, in ascending
// priority order, stopping at the first failure.
type RuleEngine struct {
	store  rules.Store
	logger zerolog.Logger
}

// NewRuleEngine constructs a rule engine over a rule store.
func NewRuleEngine(store rules.Store, logger zerolog.Logger) *RuleEngine {
	return &RuleEngine{
		store:  store,
		logger: logger.With().Str("component", "rule_engine").Logger(),
	}
}

// Evaluate returns the decision and reason for a request. The reason of a
// rejection is always that of the first failing rule in priority order.
func (e *RuleEngine) Evaluate(ctx context.Context, req Request, signals Signals) (string, string, error) {
	active, err := e.store.ListEnabled(ctx)
	if err != nil {
		return "", "", fmt.Errorf("list enabled rules: %w", err)
	}

	for _, rule := range active {
		if e.rulePasses(rule, req, signals) {
			continue
		}
		return Rejected, rule.FailureReason(), nil
	}

	return Approved, "All rules passed", nil
}

func (e *RuleEngine) rulePasses(rule rules.Rule, req Request, signals Signals) bool {
	value, present, known := ruleValue(rule.Type, req, signals)
	if !known {
		// Rows predating save-time validation; tolerated with a warning.
		e.logger.Warn().Str("rule", rule.Name).Str("type", string(rule.Type)).Msg("unknown rule type, skipping")
		return true
	}
	if !present {
		e.logger.Warn().Str("rule", rule.Name).Str("type", string(rule.Type)).Msg("required rule input not provided")
		return false
	}
	if !rule.Operator.Valid() {
		e.logger.Warn().Str("rule", rule.Name).Str("operator", string(rule.Operator)).Msg("unknown operator, skipping")
		return true
	}
	return rule.Operator.Compare(value, rule.Threshold)
}

// ruleValue selects the comparison value for a rule type. The second return
// reports whether the value is present, the third whether the type is known.
func ruleValue(t rules.Type, req Request, signals Signals) (decimal.Decimal, bool, bool) {
	switch t {
	case rules.TypeCreditScore:
		return signals.AverageScore, true, true
	case rules.TypeLoanAmount:
		return req.LoanAmount, true, true
	case rules.TypeBureauResponse:
		return decimal.NewFromInt(int64(signals.SuccessCount)), true, true
	case rules.TypeAgeLimit:
		if req.ApplicantAge == nil {
			return decimal.Decimal{}, false, true
		}
		return *req.ApplicantAge, true, true
	}
	return decimal.Decimal{}, false, false
}
