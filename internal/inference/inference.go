// Package inference proposes new decision rules from historical decisions.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/decision"
	"credit-decision-engine/internal/llm"
	"credit-decision-engine/internal/metrics"
	"credit-decision-engine/internal/rules"
)

// ErrDisabled is returned when inference is invoked while turned off.
var ErrDisabled = errors.New("inference: not enabled")

const systemPrompt = "You are a credit risk analyst. You study historical loan decisions and " +
	"propose threshold rules that reproduce them. Only propose rules supported " +
	"by the data. Respond with JSON only."

// Report summarizes one inference run.
type Report struct {
	Accepted []rules.Rule `json:"accepted"`
	Skipped  []string     `json:"skipped"`
	Message  string       `json:"message,omitempty"`
	Sampled  int          `json:"sampled"`
}

// Engine drives rule inference over recent decisions.
type Engine struct {
	provider  llm.ChatProvider
	ruleStore rules.Store
	decisions decision.Store
	metrics   *metrics.Metrics
	model     string
	enabled   bool
	logger    zerolog.Logger
}

// Options configures the inference engine.
type Options struct {
	Provider  llm.ChatProvider
	RuleStore rules.Store
	Decisions decision.Store
	Metrics   *metrics.Metrics
	Model     string
	Enabled   bool
}

// New constructs an inference engine.
func New(opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		provider:  opts.Provider,
		ruleStore: opts.RuleStore,
		decisions: opts.Decisions,
		metrics:   opts.Metrics,
		model:     opts.Model,
		enabled:   opts.Enabled && opts.Provider != nil,
		logger:    logger.With().Str("component", "inference").Logger(),
	}
}

// candidate is the JSON shape the model is asked to emit per rule. Models
// do not always quote the threshold, so it accepts both forms.
type candidate struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Operator       string     `json:"operator"`
	Threshold      flexString `json:"threshold"`
	Priority       int        `json:"priority"`
	Importance     string     `json:"importance"`
	Description    string     `json:"description"`
	FailureMessage string     `json:"failureMessage"`
	Confidence     float64    `json:"confidence"`
}

// flexString decodes either a JSON string or a bare JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

// Propose samples recent decisions, asks the model for candidate rules, and
// upserts every candidate that validates. Malformed candidates are skipped,
// never aborting the batch; stored decisions are never altered.
func (e *Engine) Propose(ctx context.Context, sampleSize int) (Report, error) {
	if !e.enabled {
		return Report{}, ErrDisabled
	}
	if sampleSize <= 0 {
		sampleSize = 50
	}

	records, err := e.decisions.ListRecent(ctx, sampleSize)
	if err != nil {
		return Report{}, fmt.Errorf("load recent decisions: %w", err)
	}
	if len(records) == 0 {
		return Report{Message: "no historical decisions available for inference"}, nil
	}

	raw, err := e.provider.Chat(ctx, e.model, systemPrompt, buildPrompt(records))
	if err != nil {
		return Report{}, fmt.Errorf("rule inference failed: %w", err)
	}

	candidates, err := parseCandidates(raw)
	if err != nil {
		return Report{}, err
	}

	report := Report{Sampled: len(records)}
	for i, rawCand := range candidates {
		var cand candidate
		if err := json.Unmarshal(rawCand, &cand); err != nil {
			e.logger.Warn().Err(err).Int("candidate", i).Msg("skipping undecodable rule candidate")
			report.Skipped = append(report.Skipped, fmt.Sprintf("candidate %d: %v", i, err))
			continue
		}

		rule, err := e.toRule(cand)
		if err != nil {
			e.logger.Warn().Err(err).Int("candidate", i).Msg("skipping inferred rule candidate")
			report.Skipped = append(report.Skipped, fmt.Sprintf("candidate %d: %v", i, err))
			continue
		}

		stored, err := e.ruleStore.UpsertModelRule(ctx, rule)
		if err != nil {
			e.logger.Error().Err(err).Str("rule", rule.Name).Msg("failed to upsert inferred rule")
			report.Skipped = append(report.Skipped, fmt.Sprintf("candidate %d (%s): %v", i, rule.Name, err))
			continue
		}
		if e.metrics != nil {
			e.metrics.RulesInferredTotal.Inc()
		}
		report.Accepted = append(report.Accepted, stored)
	}

	e.logger.Info().
		Int("sampled", report.Sampled).
		Int("accepted", len(report.Accepted)).
		Int("skipped", len(report.Skipped)).
		Msg("rule inference complete")

	return report, nil
}

func buildPrompt(records []decision.Record) string {
	var b strings.Builder
	b.WriteString("## Historical Decisions:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- decision=%s creditScore=%s loanAmount=%s reason=%q\n",
			r.Decision, r.CreditScore.StringFixed(2), r.LoanAmount.String(), r.Reason)
	}
	b.WriteString("\n## Task:\n")
	b.WriteString("Propose threshold rules consistent with the decisions above.\n")
	b.WriteString("Valid types: CREDIT_SCORE, LOAN_AMOUNT, BUREAU_RESPONSE, AGE_LIMIT.\n")
	b.WriteString("Valid operators: >=, <=, >, <, ==.\n")
	b.WriteString("\nRespond in JSON format:\n")
	b.WriteString(`{
  "rules": [
    {
      "name": "<UPPER_SNAKE_CASE>",
      "type": "<type>",
      "operator": "<operator>",
      "threshold": "<number>",
      "priority": <number>,
      "importance": "CRITICAL" or "HIGH" or "MEDIUM",
      "description": "<text>",
      "failureMessage": "<text>",
      "confidence": <0.0-1.0>
    }
  ]
}`)
	return b.String()
}

// parseCandidates tolerates markdown code fences and leading prose around
// the JSON document. Candidates come back undecoded so that one broken
// entry cannot sink its neighbours.
func parseCandidates(raw string) ([]json.RawMessage, error) {
	doc := extractJSON(raw)
	if doc == "" {
		return nil, fmt.Errorf("inference: no JSON object in model response")
	}

	var parsed struct {
		Rules []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("inference: decode model response: %w", err)
	}
	return parsed.Rules, nil
}

func extractJSON(raw string) string {
	cleaned := raw
	if idx := strings.Index(cleaned, "```"); idx != -1 {
		cleaned = cleaned[idx+3:]
		cleaned = strings.TrimPrefix(cleaned, "json")
		if end := strings.Index(cleaned, "```"); end != -1 {
			cleaned = cleaned[:end]
		}
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}

func (e *Engine) toRule(cand candidate) (rules.Rule, error) {
	threshold, err := decimal.NewFromString(string(cand.Threshold))
	if err != nil {
		return rules.Rule{}, fmt.Errorf("invalid threshold %q: %w", string(cand.Threshold), err)
	}

	confidence := decimal.NewFromFloat(cand.Confidence)
	meta, _ := json.Marshal(cand)

	rule := rules.Rule{
		Name:           strings.ToUpper(strings.TrimSpace(cand.Name)),
		Type:           rules.Type(cand.Type),
		Description:    cand.Description,
		Threshold:      threshold,
		Operator:       rules.Operator(cand.Operator),
		Priority:       cand.Priority,
		Importance:     cand.Importance,
		Enabled:        true,
		FailureMessage: cand.FailureMessage,
		Source:         rules.SourceModel,
		Confidence:     &confidence,
		ModelVersion:   e.model,
		Metadata:       string(meta),
	}
	if rule.Importance == "" {
		rule.Importance = "MEDIUM"
	}
	if rule.Priority <= 0 {
		rule.Priority = 100
	}
	if err := rule.Validate(); err != nil {
		return rules.Rule{}, err
	}
	return rule, nil
}
