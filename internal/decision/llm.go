package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/llm"
	"credit-decision-engine/internal/rules"
)

// ErrLLMDisabled is returned when the adapter is invoked while disabled or
// its provider is unreachable.
var ErrLLMDisabled = errors.New("decision: llm evaluator not enabled")

const llmSystemPrompt = "You are a loan decisioning expert. Analyze loan applications based on credit score, " +
	"income, debt, cashflow, and loan amount. Provide decisions in JSON format with " +
	"decision (APPROVED/REJECTED), creditScore, reason, and confidence (0-1). " +
	"Be conservative and follow the provided rules strictly."

// LLMEvaluator delegates the decision question to a language model, handing
// it the same active rule set the rule engine uses.
type LLMEvaluator struct {
	provider llm.ChatProvider
	store    rules.Store
	model    string
	enabled  bool
	logger   zerolog.Logger
}

// NewLLMEvaluator constructs the adapter. A nil provider means disabled.
func NewLLMEvaluator(provider llm.ChatProvider, store rules.Store, model string, enabled bool, logger zerolog.Logger) *LLMEvaluator {
	return &LLMEvaluator{
		provider: provider,
		store:    store,
		model:    model,
		enabled:  enabled && provider != nil,
		logger:   logger.With().Str("component", "llm_evaluator").Logger(),
	}
}

// Enabled reports whether the adapter can be invoked at all.
func (e *LLMEvaluator) Enabled(ctx context.Context) bool {
	return e.enabled && e.provider.Available(ctx)
}

// Evaluate asks the model for a decision. Transport and parse errors surface
// to the caller; the hybrid combinator decides whether to absorb them.
func (e *LLMEvaluator) Evaluate(ctx context.Context, req Request, signals Signals) (Result, error) {
	if !e.enabled {
		return Result{}, ErrLLMDisabled
	}
	if !e.provider.Available(ctx) {
		return Result{}, fmt.Errorf("%w: provider unreachable", ErrLLMDisabled)
	}

	userPrompt, err := e.buildPrompt(ctx, req, signals)
	if err != nil {
		return Result{}, err
	}

	raw, err := e.provider.Chat(ctx, e.model, llmSystemPrompt, userPrompt)
	if err != nil {
		return Result{}, fmt.Errorf("llm decision evaluation failed: %w", err)
	}

	e.logger.Debug().Str("request_id", req.RequestID).Msg("llm response received")

	result := parseLLMResponse(raw)
	result.RequestID = req.RequestID
	result.CreditScore = signals.AverageScore
	result.LoanAmount = req.LoanAmount
	result.Timestamp = time.Now().UTC()

	e.logger.Info().Str("request_id", req.RequestID).Str("decision", result.Decision).Msg("llm decision")
	return result, nil
}

func (e *LLMEvaluator) buildPrompt(ctx context.Context, req Request, signals Signals) (string, error) {
	active, err := e.store.ListEnabled(ctx)
	if err != nil {
		return "", fmt.Errorf("list enabled rules: %w", err)
	}

	var b strings.Builder
	b.WriteString("## Decision Rules:\n")
	for _, rule := range active {
		fmt.Fprintf(&b, "- %s: %s (Threshold: %s %s, Importance: %s)\n",
			rule.Name, rule.Description, rule.Threshold.String(), rule.Operator, rule.Importance)
	}
	b.WriteString("\n## Loan Application Data:\n")
	fmt.Fprintf(&b, "- Average Credit Score: %s\n", signals.AverageScore.StringFixed(2))
	fmt.Fprintf(&b, "- Loan Amount: %s\n", req.LoanAmount.String())
	if req.ApplicantAge != nil {
		fmt.Fprintf(&b, "- Applicant Age: %s\n", req.ApplicantAge.String())
	}
	if req.AnnualIncome != nil {
		fmt.Fprintf(&b, "- Annual Income: %s\n", req.AnnualIncome.String())
	}
	if req.TotalDebt != nil {
		fmt.Fprintf(&b, "- Total Debt: %s\n", req.TotalDebt.String())
	}
	if req.MonthlyCashflow != nil {
		fmt.Fprintf(&b, "- Monthly Cashflow: %s\n", req.MonthlyCashflow.String())
	}
	if req.AnnualIncome != nil && req.TotalDebt != nil && req.AnnualIncome.IsPositive() {
		dti := req.TotalDebt.DivRound(*req.AnnualIncome, 4).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(&b, "- Debt-to-Income Ratio: %s%%\n", dti.StringFixed(2))
	}

	b.WriteString("- Credit Bureau Responses:\n")
	for _, result := range req.BureauResults {
		score := "N/A"
		if result.Score != nil {
			score = result.Score.String()
		}
		fmt.Fprintf(&b, "  - %s: Score=%s, Status=%s\n", result.Source, score, result.Status)
	}

	b.WriteString("\n## Analysis Required:\n")
	b.WriteString("1. Evaluate each rule against the application data\n")
	b.WriteString("2. Consider credit score, loan amount, and bureau responses\n")
	b.WriteString("3. Provide a decision (APPROVED or REJECTED)\n")
	b.WriteString("4. Explain your reasoning\n")
	b.WriteString("5. Provide confidence score (0.0 to 1.0)\n")
	b.WriteString("\nRespond in JSON format:\n")
	b.WriteString("{\n")
	b.WriteString("  \"decision\": \"APPROVED\" or \"REJECTED\",\n")
	b.WriteString("  \"creditScore\": <number>,\n")
	b.WriteString("  \"reason\": \"<explanation>\",\n")
	b.WriteString("  \"confidence\": <0.0-1.0>\n")
	b.WriteString("}\n")

	return b.String(), nil
}

// parseLLMResponse extracts a decision and reason from unstructured model
// output. Tolerant by design: explicit token first, keyword scan second.
func parseLLMResponse(raw string) Result {
	var result Result

	if strings.Contains(raw, Approved) {
		result.Decision = Approved
	} else if strings.Contains(raw, Rejected) {
		result.Decision = Rejected
	} else if strings.Contains(strings.ToLower(raw), "approve") {
		result.Decision = Approved
	} else {
		result.Decision = Rejected
	}

	reason := extractJSONField(raw, "reason")
	if reason == "" {
		reason = extractReasonLine(raw)
	}
	if reason == "" {
		reason = "LLM decision based on configured rules"
	}
	result.Reason = reason

	return result
}

func extractJSONField(raw, field string) string {
	marker := `"` + field + `"`
	start := strings.Index(raw, marker)
	if start == -1 {
		return ""
	}
	rest := raw[start+len(marker):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return ""
	}
	rest = rest[colon+1:]
	open := strings.Index(rest, `"`)
	if open == -1 {
		return ""
	}
	rest = rest[open+1:]
	end := strings.Index(rest, `"`)
	if end == -1 {
		return ""
	}
	return rest[:end]
}

func extractReasonLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "reason") || strings.Contains(lower, "because") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
