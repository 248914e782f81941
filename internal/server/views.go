package server

import (
	"time"

	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/decision"
	"credit-decision-engine/internal/rules"
)

// ruleView is the JSON shape of a rule on the admin API.
type ruleView struct {
	Name           string           `json:"name"`
	Type           string           `json:"type"`
	Description    string           `json:"description,omitempty"`
	Threshold      decimal.Decimal  `json:"threshold"`
	Operator       string           `json:"operator"`
	Priority       int              `json:"priority"`
	Importance     string           `json:"importance,omitempty"`
	Enabled        bool             `json:"enabled"`
	FailureMessage string           `json:"failureMessage,omitempty"`
	Source         string           `json:"source,omitempty"`
	Confidence     *decimal.Decimal `json:"confidence,omitempty"`
	ModelVersion   string           `json:"modelVersion,omitempty"`
	CreatedAt      time.Time        `json:"createdAt,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt,omitempty"`
}

func viewFromRule(rule rules.Rule) ruleView {
	return ruleView{
		Name:           rule.Name,
		Type:           string(rule.Type),
		Description:    rule.Description,
		Threshold:      rule.Threshold,
		Operator:       string(rule.Operator),
		Priority:       rule.Priority,
		Importance:     rule.Importance,
		Enabled:        rule.Enabled,
		FailureMessage: rule.FailureMessage,
		Source:         rule.Source,
		Confidence:     rule.Confidence,
		ModelVersion:   rule.ModelVersion,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}

func (v ruleView) toRule() rules.Rule {
	source := v.Source
	if source == "" {
		source = rules.SourceManual
	}
	return rules.Rule{
		Name:           v.Name,
		Type:           rules.Type(v.Type),
		Description:    v.Description,
		Threshold:      v.Threshold,
		Operator:       rules.Operator(v.Operator),
		Priority:       v.Priority,
		Importance:     v.Importance,
		Enabled:        v.Enabled,
		FailureMessage: v.FailureMessage,
		Source:         source,
	}
}

// decisionView is the JSON shape of a stored decision.
type decisionView struct {
	RequestID   string          `json:"requestId"`
	Decision    string          `json:"decision"`
	CreditScore decimal.Decimal `json:"creditScore"`
	LoanAmount  decimal.Decimal `json:"loanAmount"`
	Reason      string          `json:"reason"`
	Timestamp   time.Time       `json:"timestamp"`
}

func viewFromRecord(record decision.Record) decisionView {
	return decisionView{
		RequestID:   record.RequestID,
		Decision:    record.Decision,
		CreditScore: record.CreditScore,
		LoanAmount:  record.LoanAmount,
		Reason:      record.Reason,
		Timestamp:   record.Timestamp,
	}
}
