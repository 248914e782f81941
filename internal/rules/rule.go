package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies which derived input a rule compares against.
type Type string

// Known rule types.
const (
	TypeCreditScore    Type = "CREDIT_SCORE"
	TypeLoanAmount     Type = "LOAN_AMOUNT"
	TypeBureauResponse Type = "BUREAU_RESPONSE"
	TypeAgeLimit       Type = "AGE_LIMIT"
)

// Valid reports whether the type is one of the known variants.
func (t Type) Valid() bool {
	switch t {
	case TypeCreditScore, TypeLoanAmount, TypeBureauResponse, TypeAgeLimit:
		return true
	}
	return false
}

// Operator is a threshold comparison operator.
type Operator string

// Known operators.
const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "=="
)

// Valid reports whether the operator is one of the known variants.
func (o Operator) Valid() bool {
	switch o {
	case OpGTE, OpLTE, OpGT, OpLT, OpEQ:
		return true
	}
	return false
}

// Compare applies the operator to value and threshold using exact decimal
// comparison. Returns false for unknown operators; callers decide leniency.
func (o Operator) Compare(value, threshold decimal.Decimal) bool {
	cmp := value.Cmp(threshold)
	switch o {
	case OpGTE:
		return cmp >= 0
	case OpLTE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpLT:
		return cmp < 0
	case OpEQ:
		return cmp == 0
	}
	return false
}

// Provenance of a rule definition.
const (
	SourceManual = "MANUAL"
	SourceModel  = "MODEL"
)

// Rule is a named threshold comparison against a derived input value.
type Rule struct {
	Name           string
	Type           Type
	Description    string
	Threshold      decimal.Decimal
	Operator       Operator
	Priority       int
	Importance     string
	Enabled        bool
	FailureMessage string
	Source         string
	Confidence     *decimal.Decimal
	ModelVersion   string
	Metadata       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate rejects rules that could never evaluate meaningfully. Unknown
// types and operators are refused at save time; rows predating this check
// are still tolerated at evaluation time.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("unknown rule type: %q", r.Type)
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("unknown operator: %q", r.Operator)
	}
	return nil
}

// FailureReason returns the configured failure message, or a generated one.
func (r *Rule) FailureReason() string {
	if r.FailureMessage != "" {
		return r.FailureMessage
	}
	return fmt.Sprintf("Rule '%s' failed: %s", r.Name, r.Description)
}
