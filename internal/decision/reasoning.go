package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/rules"
)

// RuleEvaluation records the outcome of one rule inside a reasoning artifact.
type RuleEvaluation struct {
	RuleName    string `json:"ruleName"`
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	ActualValue string `json:"actualValue"`
	Threshold   string `json:"threshold"`
	Operator    string `json:"operator"`
	Explanation string `json:"explanation"`
	Importance  string `json:"importance"`
}

// BureauInput is the reasoning snapshot of one bureau result.
type BureauInput struct {
	BureauName  string           `json:"bureauName"`
	CreditScore *decimal.Decimal `json:"creditScore,omitempty"`
	Status      string           `json:"status"`
}

// Inputs snapshots the request values the decision was derived from.
type Inputs struct {
	LoanAmount        decimal.Decimal  `json:"loanAmount"`
	BureauResultCount int              `json:"bureauResponseCount"`
	ApplicantAge      *decimal.Decimal `json:"applicantAge,omitempty"`
	BureauInputs      []BureauInput    `json:"bureauInputs"`
}

// Calculated snapshots the derived values.
type Calculated struct {
	AverageCreditScore decimal.Decimal `json:"averageCreditScore"`
	ValidBureauCount   int             `json:"validBureauCount"`
	CreditScoreRange   string          `json:"creditScoreRange,omitempty"`
}

// Reasoning is the fully reconstructable explanation of a decision. It is
// regenerated on every call and never cached.
type Reasoning struct {
	Summary         string           `json:"summary"`
	RuleEvaluations []RuleEvaluation `json:"ruleEvaluations"`
	Inputs          Inputs           `json:"inputs"`
	Calculated      Calculated       `json:"calculated"`
	DecisionPath    string           `json:"decisionPath"`
}

// Reasoner derives reasoning artifacts. Unlike the rule engine it evaluates
// every enabled rule without short-circuiting, so the artifact covers the
// complete rule set as it exists right now.
type Reasoner struct {
	store  rules.Store
	logger zerolog.Logger
}

// NewReasoner constructs a reasoning generator over a rule store.
func NewReasoner(store rules.Store, logger zerolog.Logger) *Reasoner {
	return &Reasoner{
		store:  store,
		logger: logger.With().Str("component", "reasoner").Logger(),
	}
}

// Explain builds a reasoning artifact for a request and its final decision.
func (r *Reasoner) Explain(ctx context.Context, req Request, signals Signals, finalDecision string) (Reasoning, error) {
	reasoning := Reasoning{
		Inputs:     buildInputs(req),
		Calculated: buildCalculated(signals),
	}

	active, err := r.store.ListEnabled(ctx)
	if err != nil {
		return Reasoning{}, fmt.Errorf("list enabled rules: %w", err)
	}

	for _, rule := range active {
		eval, ok := r.evaluateRule(rule, req, signals)
		if !ok {
			continue
		}
		reasoning.RuleEvaluations = append(reasoning.RuleEvaluations, eval)
	}

	reasoning.Summary = buildSummary(reasoning, finalDecision)
	reasoning.DecisionPath = buildDecisionPath(reasoning)

	return reasoning, nil
}

func (r *Reasoner) evaluateRule(rule rules.Rule, req Request, signals Signals) (RuleEvaluation, bool) {
	value, present, known := ruleValue(rule.Type, req, signals)
	if !known {
		r.logger.Warn().Str("rule", rule.Name).Str("type", string(rule.Type)).Msg("unknown rule type, skipping")
		return RuleEvaluation{}, false
	}

	eval := RuleEvaluation{
		RuleName:    rule.Name,
		Description: rule.Description,
		ActualValue: actualValueString(rule.Type, value, present, signals),
		Threshold:   rule.Threshold.String(),
		Operator:    string(rule.Operator),
		Importance:  rule.Importance,
	}

	if !present {
		eval.Passed = false
		eval.Explanation = fmt.Sprintf("Required value for %s was not provided", rule.Type)
		return eval, true
	}

	passed := true
	if rule.Operator.Valid() {
		passed = rule.Operator.Compare(value, rule.Threshold)
	} else {
		r.logger.Warn().Str("rule", rule.Name).Str("operator", string(rule.Operator)).Msg("unknown operator, treating as passed")
	}

	eval.Passed = passed
	if passed {
		eval.Explanation = fmt.Sprintf("%s %s %s threshold %s - Rule passed",
			rule.Type, value.StringFixed(2), rule.Operator, rule.Threshold.StringFixed(2))
	} else {
		eval.Explanation = fmt.Sprintf("%s %s does not meet requirement: %s %s - Rule failed",
			rule.Type, value.StringFixed(2), rule.Operator, rule.Threshold.StringFixed(2))
	}

	return eval, true
}

func actualValueString(t rules.Type, value decimal.Decimal, present bool, signals Signals) string {
	if !present {
		return "N/A"
	}
	switch t {
	case rules.TypeCreditScore:
		return signals.AverageScore.StringFixed(2)
	case rules.TypeBureauResponse:
		return value.String()
	default:
		return value.String()
	}
}

func buildInputs(req Request) Inputs {
	inputs := Inputs{
		LoanAmount:        req.LoanAmount,
		BureauResultCount: len(req.BureauResults),
		ApplicantAge:      req.ApplicantAge,
	}
	for _, result := range req.BureauResults {
		inputs.BureauInputs = append(inputs.BureauInputs, BureauInput{
			BureauName:  result.Source,
			CreditScore: result.Score,
			Status:      result.Status,
		})
	}
	return inputs
}

func buildCalculated(signals Signals) Calculated {
	return Calculated{
		AverageCreditScore: signals.AverageScore,
		ValidBureauCount:   signals.ValidCount,
		CreditScoreRange:   signals.ScoreRange(),
	}
}

func buildSummary(reasoning Reasoning, finalDecision string) string {
	passed := 0
	var failedNames []string
	for _, eval := range reasoning.RuleEvaluations {
		if eval.Passed {
			passed++
		} else {
			failedNames = append(failedNames, eval.RuleName)
		}
	}
	total := len(reasoning.RuleEvaluations)

	if finalDecision == Approved {
		return fmt.Sprintf(
			"Loan APPROVED: All %d critical rules passed. Credit score of %s and loan amount of %s meet all requirements.",
			passed,
			reasoning.Calculated.AverageCreditScore.StringFixed(2),
			reasoning.Inputs.LoanAmount.String(),
		)
	}
	return fmt.Sprintf(
		"Loan REJECTED: %d out of %d rules failed. Failed rules: %s. Credit score: %s, Loan amount: %s",
		total-passed,
		total,
		strings.Join(failedNames, ", "),
		reasoning.Calculated.AverageCreditScore.StringFixed(2),
		reasoning.Inputs.LoanAmount.String(),
	)
}

func buildDecisionPath(reasoning Reasoning) string {
	steps := []string{
		"1. Received credit bureau responses",
		"2. Calculated average credit score from valid responses",
	}

	for _, eval := range reasoning.RuleEvaluations {
		verdict := "FAILED"
		if eval.Passed {
			verdict = "PASSED"
		}
		steps = append(steps, fmt.Sprintf("%d. Evaluated %s: %s - %s",
			len(steps)+1, eval.RuleName, verdict, eval.Explanation))
	}

	steps = append(steps, fmt.Sprintf("%d. Final decision: %s", len(steps)+1, reasoning.Summary))

	return strings.Join(steps, "\n")
}
