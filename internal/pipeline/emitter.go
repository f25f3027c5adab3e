package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/solatis/windowkeeper/internal/types"
)

// JSONLEmitter writes one JSON object per snapshot, one per line.
// Writes are serialized so lines from parallel workers never interleave.
type JSONLEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLEmitter creates an emitter writing to w.
func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{w: w}
}

// Emit encodes snapshot and writes it with a trailing newline.
func (e *JSONLEmitter) Emit(_ context.Context, snapshot types.RuleWithConditions) error {
	line, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot for rule %s: %w", snapshot.RuleID, err)
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("write snapshot for rule %s: %w", snapshot.RuleID, err)
	}
	return nil
}
