package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Combinator dispatches a request to the rule engine, the LLM evaluator, or
// both, according to the configured mode.
type Combinator struct {
	engine    *RuleEngine
	evaluator *LLMEvaluator
	mode      string
	logger    zerolog.Logger
}

// NewCombinator constructs a hybrid combinator.
func NewCombinator(engine *RuleEngine, evaluator *LLMEvaluator, mode string, logger zerolog.Logger) *Combinator {
	return &Combinator{
		engine:    engine,
		evaluator: evaluator,
		mode:      strings.ToLower(mode),
		logger:    logger.With().Str("component", "hybrid_combinator").Logger(),
	}
}

// Decide produces a decision for the request under the configured mode.
func (c *Combinator) Decide(ctx context.Context, req Request, signals Signals) (Result, error) {
	switch c.mode {
	case "llm":
		if c.evaluator == nil || !c.evaluator.Enabled(ctx) {
			c.logger.Warn().Str("request_id", req.RequestID).Msg("llm mode requested but llm not enabled, falling back to rules")
			return c.ruleResult(ctx, req, signals)
		}
		return c.evaluator.Evaluate(ctx, req, signals)
	case "hybrid":
		return c.decideHybrid(ctx, req, signals)
	default:
		return c.ruleResult(ctx, req, signals)
	}
}

// decideHybrid requires both paths to approve. An LLM outage never blocks a
// rule-eligible decision: errors on the LLM side fall back to the rule result.
func (c *Combinator) decideHybrid(ctx context.Context, req Request, signals Signals) (Result, error) {
	ruleResult, err := c.ruleResult(ctx, req, signals)
	if err != nil {
		return Result{}, err
	}

	if c.evaluator == nil || !c.evaluator.Enabled(ctx) {
		c.logger.Debug().Str("request_id", req.RequestID).Msg("llm not available for hybrid mode, using rule result only")
		return ruleResult, nil
	}

	llmResult, err := c.evaluator.Evaluate(ctx, req, signals)
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("llm evaluation failed in hybrid mode, using rule result only")
		return ruleResult, nil
	}

	final := Result{
		RequestID:   req.RequestID,
		CreditScore: signals.AverageScore,
		LoanAmount:  req.LoanAmount,
		Timestamp:   ruleResult.Timestamp,
	}

	if ruleResult.Decision == Approved && llmResult.Decision == Approved {
		final.Decision = Approved
		final.Reason = "Both rule-based and LLM evaluations approved the loan"
	} else {
		final.Decision = Rejected
		var reason strings.Builder
		reason.WriteString("Loan rejected: ")
		if ruleResult.Decision != Approved {
			reason.WriteString("Rule-based evaluation failed. ")
		}
		if llmResult.Decision != Approved {
			reason.WriteString("LLM evaluation failed. ")
		}
		fmt.Fprintf(&reason, "Rule reason: %s LLM reason: %s", ruleResult.Reason, llmResult.Reason)
		final.Reason = reason.String()
	}

	c.logger.Info().
		Str("request_id", req.RequestID).
		Str("decision", final.Decision).
		Str("rule_decision", ruleResult.Decision).
		Str("llm_decision", llmResult.Decision).
		Msg("hybrid decision")

	return final, nil
}

func (c *Combinator) ruleResult(ctx context.Context, req Request, signals Signals) (Result, error) {
	outcome, reason, err := c.engine.Evaluate(ctx, req, signals)
	if err != nil {
		return Result{}, err
	}
	return Result{
		RequestID:   req.RequestID,
		Decision:    outcome,
		CreditScore: signals.AverageScore,
		LoanAmount:  req.LoanAmount,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	}, nil
}
