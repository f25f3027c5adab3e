package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/windowkeeper/internal/core/db"
	"github.com/solatis/windowkeeper/internal/types"
)

// SQLStore keeps records in the condition_state table.
// The key is stored as its signed 64-bit bit pattern; the record as JSON.
type SQLStore struct {
	queries *db.Queries
	now     func() time.Time
}

// NewSQLStore creates a store over migrated tables.
func NewSQLStore(queries *db.Queries) *SQLStore {
	return &SQLStore{queries: queries, now: time.Now}
}

// Get loads and decodes the record for key.
func (s *SQLStore) Get(ctx context.Context, key types.ConditionKey) (*types.ConditionRecord, error) {
	var data string
	err := s.queries.Get(ctx, "get-condition-state", &data, int64(key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("get condition state %s: %w", key, err)
	}
	return decodeRecord([]byte(data))
}

// Put upserts the record for key.
func (s *SQLStore) Put(ctx context.Context, key types.ConditionKey, rec *types.ConditionRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.queries.Exec(ctx, "upsert-condition-state",
		int64(key),
		string(rec.RuleID),
		rec.ComponentID,
		rec.Type.String(),
		string(data),
		rec.Fulfilled,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put condition state %s: %w", key, err)
	}
	return nil
}

// ForRule returns every stored record of ruleID ordered by key.
func (s *SQLStore) ForRule(ctx context.Context, ruleID types.RuleID) ([]*types.ConditionRecord, error) {
	var rows []string
	if err := s.queries.Select(ctx, "list-condition-states-by-rule", &rows, string(ruleID)); err != nil {
		return nil, fmt.Errorf("list condition states for rule %s: %w", ruleID, err)
	}
	out := make([]*types.ConditionRecord, 0, len(rows))
	for _, data := range rows {
		rec, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteRule removes every stored record of ruleID and returns how many went.
func (s *SQLStore) DeleteRule(ctx context.Context, ruleID types.RuleID) (int64, error) {
	res, err := s.queries.Exec(ctx, "delete-condition-states-by-rule", string(ruleID))
	if err != nil {
		return 0, fmt.Errorf("delete condition states for rule %s: %w", ruleID, err)
	}
	return res.RowsAffected()
}
