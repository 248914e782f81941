package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/bureau"
	"credit-decision-engine/internal/decision"
)

// DecideOptions configure a one-shot evaluation with simulated bureau
// results instead of live connector calls.
type DecideOptions struct {
	RequestID    string
	LoanAmount   float64
	Scores       []float64
	FailedCount  int
	ApplicantAge int
}

// Decide evaluates a single simulated application and prints the result.
func (a *App) Decide(ctx context.Context, opts DecideOptions) error {
	pipe, closer, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer closer()

	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	results := make([]bureau.Result, 0, len(opts.Scores)+opts.FailedCount)
	for i, raw := range opts.Scores {
		score := decimal.NewFromFloat(raw)
		results = append(results, bureau.Result{
			Source:    fmt.Sprintf("SIMULATED_BUREAU_%d", i+1),
			Score:     &score,
			Status:    bureau.StatusSuccess,
			Timestamp: time.Now().UTC(),
		})
	}
	for i := 0; i < opts.FailedCount; i++ {
		results = append(results, bureau.Result{
			Source:       fmt.Sprintf("SIMULATED_FAILED_%d", i+1),
			Status:       bureau.StatusFailed,
			ErrorMessage: "Service unavailable",
			Timestamp:    time.Now().UTC(),
		})
	}

	req := decision.Request{
		RequestID:     requestID,
		LoanAmount:    decimal.NewFromFloat(opts.LoanAmount),
		BureauResults: results,
	}
	if opts.ApplicantAge > 0 {
		age := decimal.NewFromInt(int64(opts.ApplicantAge))
		req.ApplicantAge = &age
	}

	result, err := pipe.service.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
