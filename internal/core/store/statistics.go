package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/solatis/windowkeeper/internal/core/db"
)

// SQLStatistics keeps numeric observations in the observations table.
// A second observation at the same (component, timestamp) replaces the first.
type SQLStatistics struct {
	queries *db.Queries
}

// NewSQLStatistics creates a repository over migrated tables.
func NewSQLStatistics(queries *db.Queries) *SQLStatistics {
	return &SQLStatistics{queries: queries}
}

// Record stores one observation.
func (s *SQLStatistics) Record(ctx context.Context, componentID string, timestamp int64, value float64) error {
	if _, err := s.queries.Exec(ctx, "upsert-observation", componentID, timestamp, value); err != nil {
		return fmt.Errorf("record observation for %s: %w", componentID, err)
	}
	return nil
}

// Values returns the observations of componentID with from <= timestamp < to, oldest first.
func (s *SQLStatistics) Values(ctx context.Context, componentID string, from, to int64) ([]float64, error) {
	var values []float64
	if err := s.queries.Select(ctx, "select-observation-values", &values, componentID, from, to); err != nil {
		return nil, fmt.Errorf("select observations for %s: %w", componentID, err)
	}
	return values, nil
}

// Prune deletes observations older than before.
func (s *SQLStatistics) Prune(ctx context.Context, before int64) (int64, error) {
	res, err := s.queries.Exec(ctx, "delete-observations-before", before)
	if err != nil {
		return 0, fmt.Errorf("prune observations: %w", err)
	}
	return res.RowsAffected()
}

type point struct {
	ts    int64
	value float64
}

// MemoryStatistics keeps observations in process memory, sorted per component.
type MemoryStatistics struct {
	mu     sync.RWMutex
	series map[string][]point
}

// NewMemoryStatistics creates an empty repository.
func NewMemoryStatistics() *MemoryStatistics {
	return &MemoryStatistics{series: make(map[string][]point)}
}

// Record stores one observation, replacing one at the same timestamp.
func (s *MemoryStatistics) Record(_ context.Context, componentID string, timestamp int64, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pts := s.series[componentID]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].ts >= timestamp })
	if i < len(pts) && pts[i].ts == timestamp {
		pts[i].value = value
		return nil
	}
	pts = append(pts, point{})
	copy(pts[i+1:], pts[i:])
	pts[i] = point{ts: timestamp, value: value}
	s.series[componentID] = pts
	return nil
}

// Values returns the observations of componentID with from <= timestamp < to, oldest first.
func (s *MemoryStatistics) Values(_ context.Context, componentID string, from, to int64) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.series[componentID]
	lo := sort.Search(len(pts), func(i int) bool { return pts[i].ts >= from })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].ts >= to })
	if lo >= hi {
		return nil, nil
	}
	out := make([]float64, 0, hi-lo)
	for _, p := range pts[lo:hi] {
		out = append(out, p.value)
	}
	return out, nil
}

// Prune deletes observations older than before.
func (s *MemoryStatistics) Prune(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, pts := range s.series {
		i := sort.Search(len(pts), func(i int) bool { return pts[i].ts >= before })
		n += int64(i)
		if i == len(pts) {
			delete(s.series, id)
			continue
		}
		s.series[id] = append([]point(nil), pts[i:]...)
	}
	return n, nil
}
