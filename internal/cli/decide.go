package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"credit-decision-engine/internal/app"
)

var (
	decideRequestID  string
	decideLoanAmount float64
	decideScores     []float64
	decideFailed     int
	decideAge        int
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate one application with simulated bureau results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if decideLoanAmount <= 0 {
			return fmt.Errorf("--amount must be greater than zero")
		}
		if len(decideScores) == 0 && decideFailed == 0 {
			return fmt.Errorf("at least one --score or --failed bureau is required")
		}

		opts := app.DecideOptions{
			RequestID:    decideRequestID,
			LoanAmount:   decideLoanAmount,
			Scores:       decideScores,
			FailedCount:  decideFailed,
			ApplicantAge: decideAge,
		}

		return getApp().Decide(cmd.Context(), opts)
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideRequestID, "request-id", "", "Request id (generated when empty)")
	decideCmd.Flags().Float64Var(&decideLoanAmount, "amount", 0, "Requested loan amount")
	decideCmd.Flags().Float64SliceVar(&decideScores, "score", nil, "Simulated successful bureau score (repeatable)")
	decideCmd.Flags().IntVar(&decideFailed, "failed", 0, "Number of simulated failed bureau calls")
	decideCmd.Flags().IntVar(&decideAge, "age", 0, "Applicant age")
}
