package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// Rules prints the configured rule set.
func (a *App) Rules(ctx context.Context) error {
	pipe, closer, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer closer()

	list, err := pipe.ruleStore.List(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Priority\tName\tType\tOperator\tThreshold\tEnabled\tSource")

	for _, rule := range list {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			rule.Priority,
			rule.Name,
			rule.Type,
			rule.Operator,
			rule.Threshold.String(),
			rule.Enabled,
			rule.Source,
		)
	}

	writer.Flush()
	return nil
}

// InferOptions configure an inference run.
type InferOptions struct {
	SampleSize int
}

// Infer runs rule inference over recent decisions and prints the report.
func (a *App) Infer(ctx context.Context, opts InferOptions) error {
	pipe, closer, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if pipe.inferrer == nil {
		return fmt.Errorf("inference is not enabled; set inference.enabled and llm.enabled")
	}

	report, err := pipe.inferrer.Propose(ctx, opts.SampleSize)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
