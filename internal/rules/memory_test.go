package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testRule(name string, priority int) Rule {
	return Rule{
		Name:      name,
		Type:      TypeCreditScore,
		Operator:  OpGTE,
		Threshold: decimal.NewFromInt(650),
		Priority:  priority,
		Enabled:   true,
	}
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, testRule("A", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, testRule("A", 2)); !errors.Is(err, ErrDuplicateRuleName) {
		t.Fatalf("want ErrDuplicateRuleName, got %v", err)
	}
}

func TestMemoryStoreListEnabledOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, r := range []Rule{testRule("B", 2), testRule("C", 1), testRule("A", 2)} {
		if _, err := store.Create(ctx, r); err != nil {
			t.Fatalf("create %s: %v", r.Name, err)
		}
	}
	disabled := testRule("D", 0)
	disabled.Enabled = false
	if _, err := store.Create(ctx, disabled); err != nil {
		t.Fatalf("create D: %v", err)
	}

	list, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}

	var names []string
	for _, r := range list {
		names = append(names, r.Name)
	}
	want := []string{"C", "A", "B"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("priority ordering wrong: expected %v, got %v", want, names)
		}
	}
}

func TestMemoryStoreSetEnabledAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, testRule("A", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}

	rule, err := store.SetEnabled(ctx, "A", false)
	if err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	if rule.Enabled {
		t.Fatal("rule should be disabled")
	}

	list, _ := store.ListEnabled(ctx)
	if len(list) != 0 {
		t.Fatalf("disabled rule must not be listed: %v", list)
	}

	if err := store.Delete(ctx, "A"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "A"); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("want ErrRuleNotFound, got %v", err)
	}
}

func TestMemoryStoreUpsertModelRule(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rule := testRule("MODEL_RULE", 5)
	rule.Source = SourceModel

	first, err := store.UpsertModelRule(ctx, rule)
	if err != nil {
		t.Fatalf("upsert insert: %v", err)
	}

	rule.Threshold = decimal.NewFromInt(700)
	second, err := store.UpsertModelRule(ctx, rule)
	if err != nil {
		t.Fatalf("upsert replace: %v", err)
	}
	if second.Threshold.Cmp(decimal.NewFromInt(700)) != 0 {
		t.Fatalf("threshold not replaced: %s", second.Threshold.String())
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatal("upsert should preserve created_at")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := Seed(ctx, store, nopLogger()); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(ctx, store, nopLogger()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	list, _ := store.List(ctx)
	if len(list) != 3 {
		t.Fatalf("expected 3 default rules, got %d", len(list))
	}
	if list[0].Name != "MINIMUM_CREDIT_SCORE" || list[1].Name != "MAXIMUM_LOAN_AMOUNT" || list[2].Name != "BUREAU_RESPONSE_VALIDATION" {
		t.Fatalf("default priority order wrong: %v", []string{list[0].Name, list[1].Name, list[2].Name})
	}
}
