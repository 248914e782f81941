package rules

import (
	"context"
	"errors"
)

var (
	// ErrRuleNotFound indicates the named rule does not exist.
	ErrRuleNotFound = errors.New("rules: rule not found")
	// ErrDuplicateRuleName indicates a unique-name violation on create.
	ErrDuplicateRuleName = errors.New("rules: rule name already exists")
)

// Store defines rule persistence. ListEnabled must return rules ordered by
// ascending priority; ties keep a stable order within one call.
type Store interface {
	Create(ctx context.Context, rule Rule) (Rule, error)
	Update(ctx context.Context, rule Rule) (Rule, error)
	// UpsertModelRule inserts or replaces a rule by name, used by inference.
	UpsertModelRule(ctx context.Context, rule Rule) (Rule, error)
	Delete(ctx context.Context, name string) error
	SetEnabled(ctx context.Context, name string, enabled bool) (Rule, error)
	GetByName(ctx context.Context, name string) (Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListEnabled(ctx context.Context) ([]Rule, error)
}
