package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// Show prints recent decisions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	pipe, closer, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer closer()

	records, err := pipe.decisions.ListRecent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no decisions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRequest ID\tDecision\tScore\tAmount\tReason")

	for _, record := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			record.Timestamp.UTC().Format(time.RFC3339),
			record.RequestID,
			record.Decision,
			record.CreditScore.StringFixed(2),
			record.LoanAmount.String(),
			sanitizeInline(record.Reason),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
