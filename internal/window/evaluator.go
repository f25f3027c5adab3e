// internal/window/evaluator.go
package window

import "time"

/*
 * Prune-and-fulfill pass over a condition window.
 *
 * The pass splits the window at one false sample ("boundary"): the latest
 * false sample at or after the earliest sample (the cursor).
 *
 *   1. no boundary, or the boundary is the cursor itself: the whole window
 *      is the tail
 *   2. boundary - cursor < timeLimit: the span can never satisfy the limit,
 *      every sample before boundary-1 is dropped
 *   3. otherwise [cursor, boundary) goes through the fulfillment test
 *   4. the tail [boundary, end] goes through the fulfillment test and its
 *      result is the verdict of the pass
 *
 * Splitting at the latest false sample makes a pass a fixed point: running
 * it again on its own output without new samples finds the same boundary
 * and drops nothing further.
 *
 * Fulfillment test: fewer than MinEvidence samples never fulfil. Otherwise the
 * first and last true samples of the sub-window are located (they need not be
 * contiguous) and the sub-window is fulfilled when last-first >= timeLimit.
 *
 * Reordering tolerance: a sub-window that was too small or was fulfilled is
 * physically cleared once the window's latest sample is more than the
 * tolerance past the sub-window's latest sample. Late samples cannot land in
 * it any more. Clearing changes memory use only, never the returned verdict.
 * The tail holds the latest sample and is therefore never cleared.
 *
 * The evaluator is synchronous and holds no state besides its tolerance;
 * callers serialize passes per condition key.
 */

// MinEvidence is the smallest sub-window that can establish fulfillment.
const MinEvidence = 3

// DefaultReorderTolerance is the event-time skew assumed when none is configured.
const DefaultReorderTolerance = 60 * time.Second

// Result is the outcome of one pass.
type Result struct {
	Window    Window // pruned window to persist
	Fulfilled bool   // verdict of the tail sub-window
	Pruned    int    // samples dropped by sub-threshold pruning
	Collected int    // samples cleared by reordering-tolerance GC
}

// Evaluator runs prune-and-fulfill passes.
type Evaluator struct {
	tolerance int64 // seconds
}

// NewEvaluator creates an evaluator with the given reordering tolerance.
// Sub-second tolerances are truncated; negative values are treated as zero.
func NewEvaluator(tolerance time.Duration) *Evaluator {
	secs := int64(tolerance / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &Evaluator{tolerance: secs}
}

// Tolerance returns the configured reordering tolerance.
func (e *Evaluator) Tolerance() time.Duration {
	return time.Duration(e.tolerance) * time.Second
}

// Evaluate runs one pass over w. w itself is not modified.
func (e *Evaluator) Evaluate(w Window, timeLimit int64) Result {
	if w.Len() <= 1 {
		return Result{Window: w.Clone()}
	}

	samples := w.Samples()
	latest := samples[len(samples)-1].Timestamp
	res := Result{}

	cursor := samples[0].Timestamp
	if idx := lastBoundary(samples); idx >= 0 && samples[idx].Timestamp != cursor {
		boundary := samples[idx].Timestamp
		if boundary-cursor < timeLimit {
			cut := searchSamples(samples, boundary-1)
			samples = samples[cut:]
			res.Pruned = cut
		} else {
			hi := searchSamples(samples, boundary)
			if _, clear := e.check(samples[:hi], latest, timeLimit); clear {
				samples = samples[hi:]
				res.Collected = hi
			}
		}
		cursor = boundary
	}

	tail := samples[searchSamples(samples, cursor):]
	res.Fulfilled, _ = e.check(tail, latest, timeLimit)
	res.Window = Window{samples: samples}
	return res
}

// check applies the fulfillment test to sub and reports whether sub may be cleared.
func (e *Evaluator) check(sub []Sample, latest, timeLimit int64) (fulfilled bool, clear bool) {
	if len(sub) == 0 {
		return false, false
	}
	settled := latest-sub[len(sub)-1].Timestamp > e.tolerance

	if len(sub) < MinEvidence {
		return false, settled
	}

	first, last := int64(0), int64(0)
	seen := false
	for _, s := range sub {
		if !s.Value {
			continue
		}
		if !seen {
			first = s.Timestamp
			seen = true
		}
		last = s.Timestamp
	}
	// seen keeps an all-false sub-window from fulfilling a zero time limit.
	if seen && last-first >= timeLimit {
		return true, settled
	}
	return false, false
}

// lastBoundary returns the index of the latest false sample, or -1.
func lastBoundary(samples []Sample) int {
	for i := len(samples) - 1; i >= 0; i-- {
		if !samples[i].Value {
			return i
		}
	}
	return -1
}
