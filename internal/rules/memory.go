package rules

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps rules in process memory. Used for tests and for running
// without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewMemoryStore constructs an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]Rule)}
}

// Create inserts a new rule, failing on a duplicate name.
func (s *MemoryStore) Create(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.Name]; exists {
		return Rule{}, ErrDuplicateRuleName
	}
	if rule.Source == "" {
		rule.Source = SourceManual
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.Name] = rule
	return rule, nil
}

// Update replaces an existing rule.
func (s *MemoryStore) Update(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.Name]
	if !exists {
		return Rule{}, ErrRuleNotFound
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.Name] = rule
	return rule, nil
}

// UpsertModelRule inserts or replaces a rule by name.
func (s *MemoryStore) UpsertModelRule(ctx context.Context, rule Rule) (Rule, error) {
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, exists := s.rules[rule.Name]; exists {
		rule.CreatedAt = existing.CreatedAt
	} else {
		rule.CreatedAt = now
	}
	if rule.Source == "" {
		rule.Source = SourceModel
	}
	rule.UpdatedAt = now
	s.rules[rule.Name] = rule
	return rule, nil
}

// Delete removes a rule by name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[name]; !exists {
		return ErrRuleNotFound
	}
	delete(s.rules, name)
	return nil
}

// SetEnabled toggles a rule's enablement state.
func (s *MemoryStore) SetEnabled(ctx context.Context, name string, enabled bool) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[name]
	if !exists {
		return Rule{}, ErrRuleNotFound
	}
	rule.Enabled = enabled
	rule.UpdatedAt = time.Now().UTC()
	s.rules[name] = rule
	return rule, nil
}

// GetByName fetches a single rule.
func (s *MemoryStore) GetByName(ctx context.Context, name string) (Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[name]
	if !exists {
		return Rule{}, ErrRuleNotFound
	}
	return rule, nil
}

// List returns every rule ordered by priority.
func (s *MemoryStore) List(ctx context.Context) ([]Rule, error) {
	return s.snapshot(func(Rule) bool { return true }), nil
}

// ListEnabled returns enabled rules ordered by ascending priority.
func (s *MemoryStore) ListEnabled(ctx context.Context) ([]Rule, error) {
	return s.snapshot(func(r Rule) bool { return r.Enabled }), nil
}

func (s *MemoryStore) snapshot(keep func(Rule) bool) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if keep(rule) {
			list = append(list, rule)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].Name < list[j].Name
	})
	return list
}

var _ Store = (*MemoryStore)(nil)
