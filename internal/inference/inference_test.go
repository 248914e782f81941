package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/decision"
	"credit-decision-engine/internal/rules"
)

type fakeProvider struct {
	response string
	err      error
	lastUser string
}

func (f *fakeProvider) Chat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Available(ctx context.Context) bool { return true }

func seedDecisions(t *testing.T, store decision.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Insert(context.Background(), decision.Record{
			RequestID:   string(rune('a' + i)),
			Decision:    decision.Approved,
			CreditScore: decimal.NewFromInt(700),
			LoanAmount:  decimal.NewFromInt(50000),
			Reason:      "All rules passed",
			Timestamp:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed decision: %v", err)
		}
	}
}

func newEngine(provider *fakeProvider, ruleStore rules.Store, decisions decision.Store, enabled bool) *Engine {
	return New(Options{
		Provider:  provider,
		RuleStore: ruleStore,
		Decisions: decisions,
		Model:     "llama3",
		Enabled:   enabled,
	}, zerolog.Nop())
}

func TestProposeDisabled(t *testing.T) {
	engine := newEngine(&fakeProvider{}, rules.NewMemoryStore(), decision.NewMemoryStore(), false)
	if _, err := engine.Propose(context.Background(), 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("want ErrDisabled, got %v", err)
	}
}

func TestProposeNoHistory(t *testing.T) {
	engine := newEngine(&fakeProvider{}, rules.NewMemoryStore(), decision.NewMemoryStore(), true)
	report, err := engine.Propose(context.Background(), 10)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if report.Message == "" {
		t.Fatal("empty history should explain itself in the report")
	}
	if len(report.Accepted) != 0 {
		t.Fatalf("no rules expected: %+v", report.Accepted)
	}
}

func TestProposeAcceptsValidCandidates(t *testing.T) {
	provider := &fakeProvider{response: "```json\n" + `{
  "rules": [
    {
      "name": "minimum_score_inferred",
      "type": "CREDIT_SCORE",
      "operator": ">=",
      "threshold": "680",
      "priority": 10,
      "importance": "HIGH",
      "description": "Inferred score floor",
      "confidence": 0.82
    }
  ]
}` + "\n```"}

	ruleStore := rules.NewMemoryStore()
	decisions := decision.NewMemoryStore()
	seedDecisions(t, decisions, 5)

	engine := newEngine(provider, ruleStore, decisions, true)
	report, err := engine.Propose(context.Background(), 10)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if report.Sampled != 5 {
		t.Fatalf("sampled count mismatch: %d", report.Sampled)
	}
	if len(report.Accepted) != 1 || len(report.Skipped) != 0 {
		t.Fatalf("expected 1 accepted, 0 skipped: %+v", report)
	}

	saved, err := ruleStore.GetByName(context.Background(), "MINIMUM_SCORE_INFERRED")
	if err != nil {
		t.Fatalf("inferred rule not stored: %v", err)
	}
	if saved.Source != rules.SourceModel {
		t.Fatalf("source should be MODEL: %s", saved.Source)
	}
	if saved.Confidence == nil || saved.Confidence.StringFixed(2) != "0.82" {
		t.Fatalf("confidence not persisted: %+v", saved.Confidence)
	}
	if saved.ModelVersion != "llama3" {
		t.Fatalf("model version not persisted: %s", saved.ModelVersion)
	}
	if saved.Metadata == "" {
		t.Fatal("raw candidate metadata should be persisted")
	}
}

func TestProposeSkipsMalformedCandidates(t *testing.T) {
	provider := &fakeProvider{response: `{
  "rules": [
    {"name": "GOOD_RULE", "type": "LOAN_AMOUNT", "operator": "<=", "threshold": "750000", "priority": 9, "confidence": 0.6},
    {"name": "BAD_TYPE", "type": "ZODIAC_SIGN", "operator": ">=", "threshold": "1", "confidence": 0.9},
    {"name": "BAD_THRESHOLD", "type": "CREDIT_SCORE", "operator": ">=", "threshold": "six hundred", "confidence": 0.9},
    {"name": "", "type": "CREDIT_SCORE", "operator": ">=", "threshold": "600", "confidence": 0.9}
  ]
}`}

	ruleStore := rules.NewMemoryStore()
	decisions := decision.NewMemoryStore()
	seedDecisions(t, decisions, 3)

	engine := newEngine(provider, ruleStore, decisions, true)
	report, err := engine.Propose(context.Background(), 10)
	if err != nil {
		t.Fatalf("bad candidates must not abort the batch: %v", err)
	}
	if len(report.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(report.Accepted))
	}
	if len(report.Skipped) != 3 {
		t.Fatalf("expected 3 skipped, got %d: %v", len(report.Skipped), report.Skipped)
	}
}

func TestProposeNumericThresholdAndBrokenNeighbour(t *testing.T) {
	provider := &fakeProvider{response: `{
  "rules": [
    {"name": "AMOUNT_CAP", "type": "LOAN_AMOUNT", "operator": "<=", "threshold": 500000, "priority": 5, "confidence": 0.7},
    {"name": "BAD_SHAPE", "type": "CREDIT_SCORE", "operator": ">=", "threshold": "600", "priority": "first", "confidence": 0.9},
    {"name": "SCORE_FLOOR", "type": "CREDIT_SCORE", "operator": ">=", "threshold": "640", "priority": 6, "confidence": 0.9}
  ]
}`}

	ruleStore := rules.NewMemoryStore()
	decisions := decision.NewMemoryStore()
	seedDecisions(t, decisions, 3)

	engine := newEngine(provider, ruleStore, decisions, true)
	report, err := engine.Propose(context.Background(), 10)
	if err != nil {
		t.Fatalf("one undecodable candidate must not abort the batch: %v", err)
	}
	if len(report.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d: %+v", len(report.Accepted), report)
	}
	if len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0], "candidate 1") {
		t.Fatalf("expected candidate 1 skipped: %v", report.Skipped)
	}

	saved, err := ruleStore.GetByName(context.Background(), "AMOUNT_CAP")
	if err != nil {
		t.Fatalf("numeric-threshold rule not stored: %v", err)
	}
	if saved.Threshold.String() != "500000" {
		t.Fatalf("threshold mismatch: %s", saved.Threshold.String())
	}
}

func TestProposeUnparseableResponse(t *testing.T) {
	provider := &fakeProvider{response: "I cannot help with that."}
	decisions := decision.NewMemoryStore()
	seedDecisions(t, decisions, 1)

	engine := newEngine(provider, rules.NewMemoryStore(), decisions, true)
	if _, err := engine.Propose(context.Background(), 10); err == nil {
		t.Fatal("non-JSON response should error")
	}
}

func TestProposePromptIncludesHistory(t *testing.T) {
	provider := &fakeProvider{response: `{"rules": []}`}
	decisions := decision.NewMemoryStore()
	seedDecisions(t, decisions, 2)

	engine := newEngine(provider, rules.NewMemoryStore(), decisions, true)
	if _, err := engine.Propose(context.Background(), 10); err != nil {
		t.Fatalf("propose: %v", err)
	}
	for _, want := range []string{"decision=APPROVED", "creditScore=700.00", "Valid types"} {
		if !strings.Contains(provider.lastUser, want) {
			t.Fatalf("prompt missing %q:\n%s", want, provider.lastUser)
		}
	}
}
