package rules

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultRules returns the built-in rule set applied to fresh deployments.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:           "MINIMUM_CREDIT_SCORE",
			Type:           TypeCreditScore,
			Description:    "Credit score must be at least 650",
			Threshold:      decimal.NewFromInt(650),
			Operator:       OpGTE,
			Priority:       1,
			Importance:     "CRITICAL",
			Enabled:        true,
			FailureMessage: "Credit score below minimum threshold",
			Source:         SourceManual,
		},
		{
			Name:           "MAXIMUM_LOAN_AMOUNT",
			Type:           TypeLoanAmount,
			Description:    "Loan amount must not exceed 1,000,000",
			Threshold:      decimal.NewFromInt(1000000),
			Operator:       OpLTE,
			Priority:       2,
			Importance:     "CRITICAL",
			Enabled:        true,
			FailureMessage: "Loan amount exceeds maximum limit",
			Source:         SourceManual,
		},
		{
			Name:           "BUREAU_RESPONSE_VALIDATION",
			Type:           TypeBureauResponse,
			Description:    "At least one credit bureau must respond successfully",
			Threshold:      decimal.NewFromInt(1),
			Operator:       OpGTE,
			Priority:       3,
			Importance:     "HIGH",
			Enabled:        true,
			FailureMessage: "No successful bureau responses received",
			Source:         SourceManual,
		},
	}
}

// Seed inserts the default rules that are not present yet. Existing rules
// are never overwritten.
func Seed(ctx context.Context, store Store, logger zerolog.Logger) error {
	for _, rule := range DefaultRules() {
		if _, err := store.Create(ctx, rule); err != nil {
			if errors.Is(err, ErrDuplicateRuleName) {
				continue
			}
			return err
		}
		logger.Info().Str("rule", rule.Name).Msg("initialized default rule")
	}
	return nil
}
