package store

import (
	"context"
	"sync"

	"github.com/solatis/windowkeeper/internal/types"
)

// MemoryStore keeps records in process memory. State is lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[types.ConditionKey]*types.ConditionRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[types.ConditionKey]*types.ConditionRecord)}
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(_ context.Context, key types.ConditionKey) (*types.ConditionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, notFound(key)
	}
	return rec.Clone(), nil
}

// Put stores a copy of rec.
func (s *MemoryStore) Put(_ context.Context, key types.ConditionKey, rec *types.ConditionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec.Clone()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
