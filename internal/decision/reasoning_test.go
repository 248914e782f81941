package decision

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/rules"
)

func ageRule() rules.Rule {
	return rules.Rule{
		Name:           "MINIMUM_AGE",
		Type:           rules.TypeAgeLimit,
		Operator:       rules.OpGTE,
		Threshold:      decimal.NewFromInt(18),
		Priority:       0,
		Importance:     "CRITICAL",
		Enabled:        true,
		FailureMessage: "Applicant below minimum age",
	}
}

func TestReasoningEvaluatesEveryRule(t *testing.T) {
	store := seededStore(t)
	req := requestWith(failedResult("EXPERIAN"), failedResult("EQUIFAX"))

	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Rejected)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	// No short-circuit: all three default rules appear even though the first
	// one already failed.
	if len(reasoning.RuleEvaluations) != 3 {
		t.Fatalf("expected 3 evaluations, got %d", len(reasoning.RuleEvaluations))
	}

	failed := 0
	for _, eval := range reasoning.RuleEvaluations {
		if !eval.Passed {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("score and bureau rules should fail, got %d failures", failed)
	}
}

func TestReasoningSummaryApproved(t *testing.T) {
	store := seededStore(t)
	req := requestWith(scoreResult("EXPERIAN", 700), scoreResult("EQUIFAX", 698))

	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Approved)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	want := "Loan APPROVED: All 3 critical rules passed. Credit score of 699.00 and loan amount of 50000 meet all requirements."
	if reasoning.Summary != want {
		t.Fatalf("summary mismatch:\nwant %q\ngot  %q", want, reasoning.Summary)
	}
	if reasoning.Calculated.CreditScoreRange != "698 - 700" {
		t.Fatalf("range mismatch: %q", reasoning.Calculated.CreditScoreRange)
	}
}

func TestReasoningSummaryRejectedNamesFailedRules(t *testing.T) {
	store := seededStore(t)
	req := requestWith(failedResult("EXPERIAN"), scoreResult("EQUIFAX", 600))

	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Rejected)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	if !strings.HasPrefix(reasoning.Summary, "Loan REJECTED: 1 out of 3 rules failed.") {
		t.Fatalf("summary mismatch: %q", reasoning.Summary)
	}
	if !strings.Contains(reasoning.Summary, "MINIMUM_CREDIT_SCORE") {
		t.Fatalf("failed rule name missing: %q", reasoning.Summary)
	}
}

func TestReasoningDecisionPathNumbering(t *testing.T) {
	store := seededStore(t)
	req := requestWith(scoreResult("EXPERIAN", 700))

	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Approved)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	lines := strings.Split(reasoning.DecisionPath, "\n")
	// 2 fixed steps + 3 rules + final decision.
	if len(lines) != 6 {
		t.Fatalf("expected 6 path steps, got %d:\n%s", len(lines), reasoning.DecisionPath)
	}
	if lines[0] != "1. Received credit bureau responses" {
		t.Fatalf("first step mismatch: %q", lines[0])
	}
	if !strings.HasPrefix(lines[5], "6. Final decision: ") {
		t.Fatalf("final step mismatch: %q", lines[5])
	}
}

func TestReasoningMissingValueExplanation(t *testing.T) {
	store := seededStore(t)
	if _, err := store.Create(context.Background(), ageRule()); err != nil {
		t.Fatalf("create age rule: %v", err)
	}

	req := requestWith(scoreResult("EXPERIAN", 700))
	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Rejected)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	var ageEval *RuleEvaluation
	for i := range reasoning.RuleEvaluations {
		if reasoning.RuleEvaluations[i].RuleName == "MINIMUM_AGE" {
			ageEval = &reasoning.RuleEvaluations[i]
		}
	}
	if ageEval == nil {
		t.Fatal("age rule evaluation missing")
	}
	if ageEval.Passed {
		t.Fatal("missing value must fail")
	}
	if ageEval.Explanation != "Required value for AGE_LIMIT was not provided" {
		t.Fatalf("explanation mismatch: %q", ageEval.Explanation)
	}
	if ageEval.ActualValue != "N/A" {
		t.Fatalf("actual value should be N/A: %q", ageEval.ActualValue)
	}
}

func TestReasoningInputsSnapshot(t *testing.T) {
	store := seededStore(t)
	age := decimal.NewFromInt(30)
	req := requestWith(scoreResult("EXPERIAN", 700), failedResult("EQUIFAX"))
	req.ApplicantAge = &age

	reasoner := NewReasoner(store, zerolog.Nop())
	signals := DeriveSignals(req.BureauResults)
	reasoning, err := reasoner.Explain(context.Background(), req, signals, Approved)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	if reasoning.Inputs.BureauResultCount != 2 {
		t.Fatalf("bureau count mismatch: %d", reasoning.Inputs.BureauResultCount)
	}
	if len(reasoning.Inputs.BureauInputs) != 2 {
		t.Fatalf("bureau inputs mismatch: %d", len(reasoning.Inputs.BureauInputs))
	}
	if reasoning.Inputs.BureauInputs[1].Status != "FAILED" {
		t.Fatalf("failed bureau snapshot mismatch: %+v", reasoning.Inputs.BureauInputs[1])
	}
	if reasoning.Inputs.ApplicantAge == nil || !reasoning.Inputs.ApplicantAge.Equal(age) {
		t.Fatal("applicant age not captured")
	}
}
