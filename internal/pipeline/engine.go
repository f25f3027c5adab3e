// Package pipeline hosts the time-window engine: it reads observations,
// turns them into per-rule fragments, persists time-based state with a
// single writer per condition key and emits the resulting snapshots.
package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/types"
)

// BatchSource yields observation batches until io.EOF.
type BatchSource interface {
	Next() ([]types.Observation, error)
}

// Stats summarizes one Engine.Run.
type Stats struct {
	Batches      int
	Observations int
	Snapshots    int
	Latest       int64 // greatest observation timestamp seen
}

// Engine wires collection and dispatch into a batch loop.
type Engine struct {
	collector  *Collector
	dispatcher *Dispatcher
}

// NewEngine creates an engine from its stages.
func NewEngine(collector *Collector, dispatcher *Dispatcher) *Engine {
	return &Engine{collector: collector, dispatcher: dispatcher}
}

// Run processes batches from src until it is exhausted, ctx is done, or a
// stage fails. A failed batch stops the run; batches before it are
// committed.
func (e *Engine) Run(ctx context.Context, src BatchSource) (Stats, error) {
	log := logging.FromContext(ctx)
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch, err := src.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		fragments, err := e.collector.Collect(ctx, batch)
		if err != nil {
			return stats, err
		}
		if err := e.dispatcher.Run(ctx, fragments); err != nil {
			return stats, err
		}

		stats.Batches++
		stats.Observations += len(batch)
		stats.Snapshots += len(fragments)
		for _, obs := range batch {
			if obs.Timestamp > stats.Latest {
				stats.Latest = obs.Timestamp
			}
		}
		log.Debugw("Processed batch", "observations", len(batch), "snapshots", len(fragments))
	}
}
