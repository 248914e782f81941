package decision

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps decisions in process memory. Used for tests and for
// running without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore constructs an empty in-memory decision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Insert stores the record unless one already exists for the request id, in
// which case the existing record is returned.
func (s *MemoryStore) Insert(ctx context.Context, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.RequestID]; ok {
		return existing, nil
	}
	s.records[record.RequestID] = record
	return record, nil
}

// GetByRequestID fetches the decision for a request id.
func (s *MemoryStore) GetByRequestID(ctx context.Context, requestID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[requestID]
	if !ok {
		return Record{}, ErrDecisionNotFound
	}
	return record, nil
}

// ListRecent returns the most recent decisions, newest first.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

var _ Store = (*MemoryStore)(nil)
