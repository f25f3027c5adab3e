package pipeline

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/solatis/windowkeeper/internal/types"
)

// maxLineBytes bounds a single JSONL observation line.
const maxLineBytes = 1 << 20

// ObservationReader reads JSONL observations in batches.
type ObservationReader struct {
	scanner   *bufio.Scanner
	batchSize int
	line      int
}

// NewObservationReader reads from r, returning at most batchSize observations per batch.
func NewObservationReader(r io.Reader, batchSize int) *ObservationReader {
	if batchSize < 1 {
		batchSize = 1
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &ObservationReader{scanner: scanner, batchSize: batchSize}
}

// Next returns the next batch. It returns io.EOF, with an empty batch, once
// the input is exhausted. Blank lines are skipped; a malformed line is an
// error naming its line number.
func (r *ObservationReader) Next() ([]types.Observation, error) {
	var batch []types.Observation
	for len(batch) < r.batchSize && r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var obs types.Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if obs.ComponentID == "" {
			return nil, fmt.Errorf("line %d: observation without componentId", r.line)
		}
		batch = append(batch, obs)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
