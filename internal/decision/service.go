package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"credit-decision-engine/internal/audit"
	"credit-decision-engine/internal/metrics"
)

// Service orchestrates signal derivation, decisioning, persistence, and
// reasoning for one credit request.
type Service struct {
	store      Store
	combinator *Combinator
	reasoner   *Reasoner
	auditor    audit.Recorder
	metrics    *metrics.Metrics
	mode       string
	logger     zerolog.Logger
}

// NewService constructs the decision service. The auditor may be nil.
func NewService(store Store, combinator *Combinator, reasoner *Reasoner, auditor audit.Recorder, m *metrics.Metrics, mode string, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		combinator: combinator,
		reasoner:   reasoner,
		auditor:    auditor,
		metrics:    m,
		mode:       strings.ToLower(mode),
		logger:     logger.With().Str("component", "decision_service").Logger(),
	}
}

// Evaluate produces the decision for a request. Repeat submissions of the
// same request id return the stored decision; the reasoning artifact is
// regenerated against the current rule set on every call.
func (s *Service) Evaluate(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	signals := DeriveSignals(req.BureauResults)

	existing, err := s.store.GetByRequestID(ctx, req.RequestID)
	switch {
	case err == nil:
		s.logger.Info().Str("request_id", req.RequestID).Msg("returning cached decision")
		if s.metrics != nil {
			s.metrics.DecisionCacheHits.Inc()
		}
		return s.withReasoning(ctx, req, signals, resultFromRecord(existing)), nil
	case !errors.Is(err, ErrDecisionNotFound):
		return Result{}, fmt.Errorf("lookup decision: %w", err)
	}

	result, err := s.combinator.Decide(ctx, req, signals)
	if err != nil {
		return Result{}, err
	}

	// Under a duplicate-submission race the store keeps the first writer's
	// record; every caller sees that one.
	stored, err := s.store.Insert(ctx, Record{
		RequestID:   result.RequestID,
		Decision:    result.Decision,
		CreditScore: result.CreditScore,
		LoanAmount:  result.LoanAmount,
		Reason:      result.Reason,
		Timestamp:   result.Timestamp,
	})
	if err != nil {
		return Result{}, fmt.Errorf("persist decision: %w", err)
	}

	final := s.withReasoning(ctx, req, signals, resultFromRecord(stored))

	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(final.Decision).Inc()
		s.metrics.DecisionDuration.Observe(time.Since(started).Seconds())
		for _, result := range req.BureauResults {
			s.metrics.BureauResultsTotal.WithLabelValues(result.Source, result.Status).Inc()
		}
	}

	s.logger.Info().
		Str("request_id", final.RequestID).
		Str("decision", final.Decision).
		Str("credit_score", final.CreditScore.StringFixed(2)).
		Msg("decision recorded")

	s.recordAudit(final)

	return final, nil
}

// GetReasoning rebuilds a reasoning artifact for a stored decision. The
// stored record carries no bureau inputs, so the artifact is reconstructed
// at summary level from what was persisted.
func (s *Service) GetReasoning(ctx context.Context, requestID string) (Reasoning, error) {
	record, err := s.store.GetByRequestID(ctx, requestID)
	if err != nil {
		return Reasoning{}, err
	}

	reasoning := Reasoning{
		Summary: record.Reason,
		Inputs: Inputs{
			LoanAmount: record.LoanAmount,
		},
		Calculated: Calculated{
			AverageCreditScore: record.CreditScore,
		},
	}
	reasoning.DecisionPath = strings.Join([]string{
		fmt.Sprintf("1. Decision %s recorded at %s", record.Decision, record.Timestamp.UTC().Format(time.RFC3339)),
		fmt.Sprintf("2. Final decision: %s", record.Reason),
	}, "\n")

	return reasoning, nil
}

// ListRecent returns the latest stored decisions.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListRecent(ctx, limit)
}

func (s *Service) withReasoning(ctx context.Context, req Request, signals Signals, result Result) Result {
	if s.reasoner == nil {
		return result
	}
	reasoning, err := s.reasoner.Explain(ctx, req, signals, result.Decision)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", result.RequestID).Msg("failed to build reasoning")
		return result
	}
	result.Reasoning = &reasoning
	return result
}

// recordAudit dispatches the audit event without blocking the decision path.
func (s *Service) recordAudit(result Result) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		RequestID:   result.RequestID,
		Decision:    result.Decision,
		CreditScore: result.CreditScore,
		LoanAmount:  result.LoanAmount,
		Reason:      result.Reason,
		Mode:        s.mode,
		Timestamp:   result.Timestamp,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.auditor.Record(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("request_id", event.RequestID).Msg("audit delivery failed")
		}
	}()
}

func resultFromRecord(record Record) Result {
	return Result{
		RequestID:   record.RequestID,
		Decision:    record.Decision,
		CreditScore: record.CreditScore,
		LoanAmount:  record.LoanAmount,
		Reason:      record.Reason,
		Timestamp:   record.Timestamp,
	}
}
