package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"credit-decision-engine/internal/app"
)

var inferSampleSize int

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer candidate rules from recent decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inferSampleSize <= 0 {
			return fmt.Errorf("--sample-size must be greater than zero")
		}

		opts := app.InferOptions{
			SampleSize: inferSampleSize,
		}

		return getApp().Infer(cmd.Context(), opts)
	},
}

func init() {
	inferCmd.Flags().IntVar(&inferSampleSize, "sample-size", 50, "Number of recent decisions to sample")
}
