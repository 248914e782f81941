package decision

import (
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/bureau"
)

// Signals are the values derived from a request that rules compare against.
// Derived per evaluation, never stored.
type Signals struct {
	ValidScores  []decimal.Decimal
	AverageScore decimal.Decimal
	ValidCount   int
	MinScore     decimal.Decimal
	MaxScore     decimal.Decimal
	SuccessCount int
}

// DeriveSignals computes aggregate signals from bureau results. The average
// only considers SUCCESS results carrying a score, rounded half-up to two
// decimal places; it is zero when no valid scores exist.
func DeriveSignals(results []bureau.Result) Signals {
	var signals Signals

	for _, r := range results {
		if r.Status == bureau.StatusSuccess {
			signals.SuccessCount++
		}
		if !r.Succeeded() {
			continue
		}
		score := *r.Score
		signals.ValidScores = append(signals.ValidScores, score)
		if signals.ValidCount == 0 {
			signals.MinScore = score
			signals.MaxScore = score
		} else {
			if score.LessThan(signals.MinScore) {
				signals.MinScore = score
			}
			if score.GreaterThan(signals.MaxScore) {
				signals.MaxScore = score
			}
		}
		signals.ValidCount++
	}

	if signals.ValidCount == 0 {
		signals.AverageScore = decimal.Zero
		return signals
	}

	sum := decimal.Zero
	for _, score := range signals.ValidScores {
		sum = sum.Add(score)
	}
	signals.AverageScore = sum.DivRound(decimal.NewFromInt(int64(signals.ValidCount)), 2)

	return signals
}

// ScoreRange renders the "min - max" range string, empty without valid scores.
func (s Signals) ScoreRange() string {
	if s.ValidCount == 0 {
		return ""
	}
	return s.MinScore.String() + " - " + s.MaxScore.String()
}
