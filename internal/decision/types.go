package decision

import (
	"time"

	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/bureau"
)

// Final decisions.
const (
	Approved = "APPROVED"
	Rejected = "REJECTED"
)

// Request is one decision question: a loan application plus the bureau
// results gathered for it.
type Request struct {
	RequestID       string           `json:"requestId"`
	LoanAmount      decimal.Decimal  `json:"loanAmount"`
	BureauResults   []bureau.Result  `json:"bureauResponses"`
	ApplicantAge    *decimal.Decimal `json:"applicantAge,omitempty"`
	AnnualIncome    *decimal.Decimal `json:"annualIncome,omitempty"`
	TotalDebt       *decimal.Decimal `json:"totalDebt,omitempty"`
	MonthlyCashflow *decimal.Decimal `json:"monthlyCashflow,omitempty"`
}

// Result is the outcome of evaluating one request.
type Result struct {
	RequestID   string          `json:"requestId"`
	Decision    string          `json:"decision"`
	CreditScore decimal.Decimal `json:"creditScore"`
	LoanAmount  decimal.Decimal `json:"loanAmount"`
	Reason      string          `json:"reason"`
	Timestamp   time.Time       `json:"timestamp"`
	Reasoning   *Reasoning      `json:"reasoning,omitempty"`
}
