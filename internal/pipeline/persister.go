// internal/pipeline/persister.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/core/store"
	"github.com/solatis/windowkeeper/internal/types"
	"github.com/solatis/windowkeeper/internal/window"
)

/*
 * Time-based state persistence.
 *
 * For every TIME condition of an incoming rule fragment the Persister runs
 * one read-modify-write against the state store:
 *
 *   1. Get the prior record (absent means an empty window)
 *   2. Merge the fragment's window into the prior window, fragment wins
 *   3. Prune and evaluate under the configured reorder tolerance
 *   4. Put the record with its new window and verdict
 *
 * Configuration (operator, operands, time limit) always comes from the
 * incoming fragment; only the window is carried over from the store.
 *
 * Callers must not run two passes for the same key concurrently. The
 * Dispatcher guarantees this by sharding on rule id. Store errors abort the
 * rule and are returned unretried; keys already written in the same call
 * stay written, each Put being atomic on its own.
 */

// Persister merges rule fragments into persisted condition state.
type Persister struct {
	store     store.Store
	evaluator *window.Evaluator
}

// NewPersister creates a persister over s evaluating with ev.
func NewPersister(s store.Store, ev *window.Evaluator) *Persister {
	return &Persister{store: s, evaluator: ev}
}

// Process applies the fragment and returns a newly built snapshot.
// Non-TIME conditions are copied through unchanged.
func (p *Persister) Process(ctx context.Context, fragment types.RuleWithConditions) (types.RuleWithConditions, error) {
	out := types.NewRuleWithConditions(fragment.RuleID)
	for _, key := range fragment.SortedKeys() {
		cond := fragment.Conditions[key]
		if !cond.IsTimeBased() {
			out.Conditions[key] = cond.Clone()
			continue
		}
		rec, err := p.update(ctx, key, cond)
		if err != nil {
			return types.RuleWithConditions{}, fmt.Errorf("rule %s: %w", fragment.RuleID, err)
		}
		out.Conditions[key] = rec
	}
	return out, nil
}

func (p *Persister) update(ctx context.Context, key types.ConditionKey, fragment *types.ConditionRecord) (*types.ConditionRecord, error) {
	var prior window.Window
	stored, err := p.store.Get(ctx, key)
	switch {
	case errors.Is(err, types.ErrStateNotFound):
	case err != nil:
		StoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("load state %s: %w", key, err)
	default:
		prior = stored.TimeBasedState
	}

	res := p.evaluator.Evaluate(prior.Merge(fragment.TimeBasedState), fragment.TimeLimit)

	rec := fragment.Clone()
	rec.TimeBasedState = res.Window
	rec.Fulfilled = res.Fulfilled

	if err := p.store.Put(ctx, key, rec); err != nil {
		StoreErrors.WithLabelValues("put").Inc()
		return nil, fmt.Errorf("store state %s: %w", key, err)
	}

	observe(res)
	logging.FromContext(ctx).Debugw("Evaluated condition window",
		"key", key.String(),
		"component", rec.ComponentID,
		"samples", res.Window.Len(),
		"pruned", res.Pruned,
		"collected", res.Collected,
		"fulfilled", res.Fulfilled,
	)
	// emitted snapshots never alias the record handed to Put
	return rec.Clone(), nil
}

func observe(res window.Result) {
	outcome := "unfulfilled"
	if res.Fulfilled {
		outcome = "fulfilled"
	}
	PassesCount.WithLabelValues(outcome).Inc()
	SamplesPruned.Add(float64(res.Pruned))
	SamplesCollected.Add(float64(res.Collected))
	WindowSize.Observe(float64(res.Window.Len()))
}
