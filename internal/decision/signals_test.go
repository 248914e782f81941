package decision

import (
	"testing"

	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/bureau"
)

func scoreResult(source string, score int64) bureau.Result {
	s := decimal.NewFromInt(score)
	return bureau.Result{Source: source, Score: &s, Status: bureau.StatusSuccess}
}

func failedResult(source string) bureau.Result {
	return bureau.Result{Source: source, Status: bureau.StatusFailed, ErrorMessage: "Service unavailable"}
}

func TestDeriveSignalsAverage(t *testing.T) {
	signals := DeriveSignals([]bureau.Result{
		scoreResult("EXPERIAN", 700),
		scoreResult("EQUIFAX", 698),
	})

	if signals.AverageScore.String() != "699" {
		t.Fatalf("average mismatch: %s", signals.AverageScore.String())
	}
	if signals.ValidCount != 2 || signals.SuccessCount != 2 {
		t.Fatalf("counts wrong: %+v", signals)
	}
	if signals.ScoreRange() != "698 - 700" {
		t.Fatalf("range mismatch: %q", signals.ScoreRange())
	}
}

func TestDeriveSignalsHalfUpRounding(t *testing.T) {
	// 700 + 701 + 700 = 2101 / 3 = 700.333..., rounds to 700.33
	signals := DeriveSignals([]bureau.Result{
		scoreResult("A", 700),
		scoreResult("B", 701),
		scoreResult("C", 700),
	})
	if signals.AverageScore.StringFixed(2) != "700.33" {
		t.Fatalf("expected 700.33, got %s", signals.AverageScore.StringFixed(2))
	}

	// 700 + 701 = 1401 / 2 = 700.5, stays exact
	signals = DeriveSignals([]bureau.Result{
		scoreResult("A", 700),
		scoreResult("B", 701),
	})
	if signals.AverageScore.StringFixed(2) != "700.50" {
		t.Fatalf("expected 700.50, got %s", signals.AverageScore.StringFixed(2))
	}
}

func TestDeriveSignalsSkipsFailures(t *testing.T) {
	signals := DeriveSignals([]bureau.Result{
		failedResult("EXPERIAN"),
		scoreResult("EQUIFAX", 600),
	})

	if signals.AverageScore.String() != "600" {
		t.Fatalf("failed results must not count toward the average: %s", signals.AverageScore.String())
	}
	if signals.SuccessCount != 1 || signals.ValidCount != 1 {
		t.Fatalf("counts wrong: %+v", signals)
	}
}

func TestDeriveSignalsEmpty(t *testing.T) {
	signals := DeriveSignals([]bureau.Result{failedResult("A"), failedResult("B")})
	if !signals.AverageScore.IsZero() {
		t.Fatalf("average should be zero: %s", signals.AverageScore.String())
	}
	if signals.ScoreRange() != "" {
		t.Fatalf("range should be empty: %q", signals.ScoreRange())
	}
}

func TestDeriveSignalsSuccessWithoutScore(t *testing.T) {
	// SUCCESS without a score counts toward bureau responses but not the average.
	signals := DeriveSignals([]bureau.Result{
		{Source: "A", Status: bureau.StatusSuccess},
		scoreResult("B", 650),
	})
	if signals.SuccessCount != 2 {
		t.Fatalf("success count mismatch: %d", signals.SuccessCount)
	}
	if signals.ValidCount != 1 {
		t.Fatalf("valid count mismatch: %d", signals.ValidCount)
	}
}
