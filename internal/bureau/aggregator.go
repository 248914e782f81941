package bureau

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Aggregator fans a credit check out to every configured source and joins
// all answers. A failing source is downgraded to a FAILED result and never
// taints the other calls.
type Aggregator struct {
	checkers []Checker
	logger   zerolog.Logger
}

// NewAggregator builds an aggregator over a fixed set of sources.
func NewAggregator(checkers []Checker, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		checkers: checkers,
		logger:   logger.With().Str("component", "bureau_aggregator").Logger(),
	}
}

// Sources returns the configured source names in call order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// CheckAll issues one concurrent call per source and blocks until every call
// settles. The returned slice has one entry per source, in configuration
// order. It never returns an error; per-source failures are absorbed here.
func (a *Aggregator) CheckAll(ctx context.Context, req CreditRequest) []Result {
	results := make([]Result, len(a.checkers))

	var wg sync.WaitGroup
	for i, checker := range a.checkers {
		wg.Add(1)
		go func(idx int, c Checker) {
			defer wg.Done()
			results[idx] = a.checkOne(ctx, c, req)
		}(i, checker)
	}
	wg.Wait()

	return results
}

func (a *Aggregator) checkOne(ctx context.Context, c Checker, req CreditRequest) Result {
	result, err := c.Check(ctx, req)
	if err != nil {
		a.logger.Error().Err(err).Str("bureau", c.Name()).Msg("bureau call failed")
		status := StatusFailed
		if ctx.Err() == context.DeadlineExceeded {
			status = StatusTimeout
		}
		return Result{
			Source:       c.Name(),
			Status:       status,
			ErrorMessage: "Service unavailable",
			Timestamp:    time.Now().UTC(),
		}
	}
	return result
}
