// Package store provides the keyed condition state store and the
// observation repository behind statistics baselines.
//
// Every backend honors the same contract: Get returns a record the caller
// may change freely (never an alias of stored state), or an error wrapping
// types.ErrStateNotFound when the key was never written. Put replaces the
// stored record for the key in one atomic write. Neither retries.
package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/solatis/windowkeeper/internal/types"
)

// Store persists condition records by key.
type Store interface {
	Get(ctx context.Context, key types.ConditionKey) (*types.ConditionRecord, error)
	Put(ctx context.Context, key types.ConditionKey, rec *types.ConditionRecord) error
}

// encodeRecord serializes a record for byte-oriented backends.
func encodeRecord(rec *types.ConditionRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode condition record: %w", err)
	}
	return data, nil
}

// decodeRecord is the inverse of encodeRecord.
func decodeRecord(data []byte) (*types.ConditionRecord, error) {
	var rec types.ConditionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode condition record: %w", err)
	}
	return &rec, nil
}

func notFound(key types.ConditionKey) error {
	return fmt.Errorf("%w: key %s", types.ErrStateNotFound, key)
}
