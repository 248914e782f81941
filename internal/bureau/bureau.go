package bureau

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Result statuses reported by a bureau source.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusTimeout = "TIMEOUT"
)

// CreditRequest carries applicant and loan data to a bureau source.
type CreditRequest struct {
	SSN             string           `json:"ssn"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	LoanAmount      decimal.Decimal  `json:"loanAmount"`
	ApplicantAge    *decimal.Decimal `json:"applicantAge,omitempty"`
	AnnualIncome    *decimal.Decimal `json:"annualIncome,omitempty"`
	TotalDebt       *decimal.Decimal `json:"totalDebt,omitempty"`
	MonthlyCashflow *decimal.Decimal `json:"monthlyCashflow,omitempty"`
}

// Result is one bureau's answer to a credit check. Immutable after creation.
type Result struct {
	Source       string           `json:"bureauName"`
	Score        *decimal.Decimal `json:"creditScore,omitempty"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Succeeded reports whether this result carries a usable score.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess && r.Score != nil
}

// Checker retrieves a credit score from one external source.
// Implementations must be safe for concurrent calls.
type Checker interface {
	Name() string
	Check(ctx context.Context, req CreditRequest) (Result, error)
}
