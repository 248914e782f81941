package rules

import (
	"context"
	"sync/atomic"
)

// CachedStore wraps a Store with a read-mostly snapshot of the enabled rule
// list. Any mutation invalidates the snapshot atomically before returning,
// so evaluators always observe an all-old or all-new rule set, never a
// partial one.
type CachedStore struct {
	inner    Store
	snapshot atomic.Pointer[[]Rule]
}

// NewCachedStore wraps a store with an active-rule snapshot cache.
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{inner: inner}
}

// Invalidate drops the snapshot; the next ListEnabled reloads from the store.
func (c *CachedStore) Invalidate() {
	c.snapshot.Store(nil)
}

// ListEnabled serves from the snapshot when present, reloading on miss.
func (c *CachedStore) ListEnabled(ctx context.Context) ([]Rule, error) {
	if cached := c.snapshot.Load(); cached != nil {
		out := make([]Rule, len(*cached))
		copy(out, *cached)
		return out, nil
	}

	list, err := c.inner.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	c.snapshot.Store(&list)

	out := make([]Rule, len(list))
	copy(out, list)
	return out, nil
}

// Create inserts a rule and invalidates the snapshot.
func (c *CachedStore) Create(ctx context.Context, rule Rule) (Rule, error) {
	saved, err := c.inner.Create(ctx, rule)
	if err != nil {
		return Rule{}, err
	}
	c.Invalidate()
	return saved, nil
}

// Update replaces a rule and invalidates the snapshot.
func (c *CachedStore) Update(ctx context.Context, rule Rule) (Rule, error) {
	saved, err := c.inner.Update(ctx, rule)
	if err != nil {
		return Rule{}, err
	}
	c.Invalidate()
	return saved, nil
}

// UpsertModelRule upserts a rule and invalidates the snapshot.
func (c *CachedStore) UpsertModelRule(ctx context.Context, rule Rule) (Rule, error) {
	saved, err := c.inner.UpsertModelRule(ctx, rule)
	if err != nil {
		return Rule{}, err
	}
	c.Invalidate()
	return saved, nil
}

// Delete removes a rule and invalidates the snapshot.
func (c *CachedStore) Delete(ctx context.Context, name string) error {
	if err := c.inner.Delete(ctx, name); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// SetEnabled toggles a rule and invalidates the snapshot.
func (c *CachedStore) SetEnabled(ctx context.Context, name string, enabled bool) (Rule, error) {
	saved, err := c.inner.SetEnabled(ctx, name, enabled)
	if err != nil {
		return Rule{}, err
	}
	c.Invalidate()
	return saved, nil
}

// GetByName delegates to the wrapped store.
func (c *CachedStore) GetByName(ctx context.Context, name string) (Rule, error) {
	return c.inner.GetByName(ctx, name)
}

// List delegates to the wrapped store.
func (c *CachedStore) List(ctx context.Context) ([]Rule, error) {
	return c.inner.List(ctx)
}

var _ Store = (*CachedStore)(nil)
