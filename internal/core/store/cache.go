package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/solatis/windowkeeper/internal/types"
)

// CachedStore is a write-through LRU cache in front of another store.
//
// The cache is only coherent while this process is the single writer of
// every key it caches, which the dispatcher guarantees within one process.
// Several processes sharing a backend must run without a cache.
type CachedStore struct {
	backend Store
	cache   *lru.Cache[types.ConditionKey, *types.ConditionRecord]
}

// NewCachedStore wraps backend with an LRU of size entries.
func NewCachedStore(backend Store, size int) (*CachedStore, error) {
	cache, err := lru.New[types.ConditionKey, *types.ConditionRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create state cache: %w", err)
	}
	return &CachedStore{backend: backend, cache: cache}, nil
}

// Get serves from cache, falling back to the backend on a miss.
func (s *CachedStore) Get(ctx context.Context, key types.ConditionKey) (*types.ConditionRecord, error) {
	if rec, ok := s.cache.Get(key); ok {
		return rec.Clone(), nil
	}
	rec, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, rec.Clone())
	return rec, nil
}

// Put writes to the backend first and caches only what was written.
// A failed write evicts the key so the next Get reloads it.
func (s *CachedStore) Put(ctx context.Context, key types.ConditionKey, rec *types.ConditionRecord) error {
	if err := s.backend.Put(ctx, key, rec); err != nil {
		s.cache.Remove(key)
		return err
	}
	s.cache.Add(key, rec.Clone())
	return nil
}

// Len returns the number of cached records.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
