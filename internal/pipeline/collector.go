// internal/pipeline/collector.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/rules"
	"github.com/solatis/windowkeeper/internal/types"
	"github.com/solatis/windowkeeper/internal/window"
)

/*
 * Observation collection.
 *
 * The Collector runs every condition watching an observation's component
 * and groups the outcome per rule:
 *
 *   - TIME: the checker records its verdict into the FragmentBuffer; the
 *     drained buffer becomes the fragment window of the condition
 *   - BASIC, STATISTICS: the verdict of the latest observation in the batch
 *     becomes the condition's Fulfilled
 *
 * A batch yields one snapshot per rule touched by at least one observation.
 * The snapshot carries every condition of the rule so the rule-level
 * operator downstream sees a complete set. Numeric observations are
 * recorded for statistics baselines after the checkers ran, so an
 * observation never counts toward its own baseline.
 *
 * Values a checker cannot coerce are counted, logged and skipped.
 */

// ObservationRecorder stores numeric observations for statistics baselines.
type ObservationRecorder interface {
	Record(ctx context.Context, componentID string, timestamp int64, value float64) error
}

// FragmentBuffer accumulates time-based verdicts between drains.
// It implements rules.FragmentRecorder.
type FragmentBuffer struct {
	mu      sync.Mutex
	samples map[types.ConditionKey][]window.Sample
}

// NewFragmentBuffer creates an empty buffer.
func NewFragmentBuffer() *FragmentBuffer {
	return &FragmentBuffer{samples: make(map[types.ConditionKey][]window.Sample)}
}

// Record appends one verdict for cond.
func (b *FragmentBuffer) Record(_ context.Context, cond *types.ConditionRecord, timestamp int64, value bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := cond.Key()
	b.samples[key] = append(b.samples[key], window.Sample{Timestamp: timestamp, Value: value})
	return nil
}

// Drain returns the fragment windows recorded since the last drain and
// resets the buffer. Later verdicts win on equal timestamps.
func (b *FragmentBuffer) Drain() map[types.ConditionKey]window.Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[types.ConditionKey]window.Window, len(b.samples))
	for key, samples := range b.samples {
		out[key] = window.New(samples...)
	}
	b.samples = make(map[types.ConditionKey][]window.Sample)
	return out
}

type watcher struct {
	rule *rules.Rule
	cond *rules.Condition
}

// Collector turns observation batches into per-rule fragments.
type Collector struct {
	buffer      *FragmentBuffer
	stats       ObservationRecorder
	byComponent map[string][]watcher
	ruleOf      map[types.ConditionKey]*rules.Rule
}

// NewCollector indexes loaded rules by component. The TIME checkers of
// loaded must record into buffer. stats may be nil.
func NewCollector(loaded []*rules.Rule, buffer *FragmentBuffer, stats ObservationRecorder) *Collector {
	c := &Collector{
		buffer:      buffer,
		stats:       stats,
		byComponent: make(map[string][]watcher),
		ruleOf:      make(map[types.ConditionKey]*rules.Rule),
	}
	for _, r := range loaded {
		for _, cond := range r.Conditions {
			id := cond.Record.ComponentID
			c.byComponent[id] = append(c.byComponent[id], watcher{rule: r, cond: cond})
			c.ruleOf[cond.Record.Key()] = r
		}
	}
	return c
}

// Collect checks a batch and returns one snapshot per touched rule, in
// order of first touch.
func (c *Collector) Collect(ctx context.Context, batch []types.Observation) ([]types.RuleWithConditions, error) {
	log := logging.FromContext(ctx)

	var order []types.RuleID
	snapshots := make(map[types.RuleID]types.RuleWithConditions)
	latest := make(map[types.ConditionKey]int64)

	snapshotOf := func(r *rules.Rule) types.RuleWithConditions {
		s, ok := snapshots[r.ID]
		if !ok {
			s = r.Snapshot()
			snapshots[r.ID] = s
			order = append(order, r.ID)
		}
		return s
	}

	for _, obs := range batch {
		ObservationsCount.Inc()
		for _, w := range c.byComponent[obs.ComponentID] {
			verdict, err := w.cond.Checker.Check(ctx, obs)
			if errors.Is(err, types.ErrCoercionFailed) {
				CheckErrors.WithLabelValues("coercion").Inc()
				log.Warnw("Skipping observation", "component", obs.ComponentID, "timestamp", obs.Timestamp, "error", err)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("check rule %s: %w", w.rule.ID, err)
			}

			snap := snapshotOf(w.rule)
			if w.cond.Record.IsTimeBased() {
				continue
			}
			key := w.cond.Record.Key()
			if ts, seen := latest[key]; seen && ts > obs.Timestamp {
				continue
			}
			latest[key] = obs.Timestamp
			snap.Conditions[key].Fulfilled = verdict
		}

		if c.stats == nil {
			continue
		}
		if v, err := rules.CoerceNumber(obs.Value); err == nil {
			if err := c.stats.Record(ctx, obs.ComponentID, obs.Timestamp, v); err != nil {
				return nil, fmt.Errorf("record observation: %w", err)
			}
		}
	}

	for key, w := range c.buffer.Drain() {
		r, ok := c.ruleOf[key]
		if !ok {
			continue
		}
		snapshotOf(r).Conditions[key].TimeBasedState = w
	}

	out := make([]types.RuleWithConditions, 0, len(order))
	for _, id := range order {
		out = append(out, snapshots[id])
	}
	return out, nil
}
