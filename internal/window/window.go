// internal/window/window.go
package window

import (
	"fmt"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
)

/*
 * Time-based condition window.
 *
 * A Window is the sorted timestamp -> bool history of a time-based condition.
 * Timestamps are event-time seconds. Keys are unique and strictly increasing;
 * every constructor and mutation restores that ordering.
 *
 * Windows are values: Merge and the evaluator return new windows and never
 * touch the receiver's backing array, so a snapshot handed downstream cannot
 * be changed by a later pass.
 *
 * Wire format: a JSON object keyed by decimal timestamp, matching the sorted
 * map representation used by the state store and the emitted snapshots.
 */

// Sample is one timestamped verdict of a condition.
type Sample struct {
	Timestamp int64
	Value     bool
}

// Window is an ordered set of samples with unique timestamps.
type Window struct {
	samples []Sample
}

// New builds a window from samples in any order.
// Duplicate timestamps keep the value that appears last in the argument list.
func New(samples ...Sample) Window {
	if len(samples) == 0 {
		return Window{}
	}
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	out := sorted[:0]
	for _, s := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp == s.Timestamp {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return Window{samples: out}
}

// FromMap builds a window from a timestamp -> value mapping.
func FromMap(m map[int64]bool) Window {
	samples := make([]Sample, 0, len(m))
	for ts, v := range m {
		samples = append(samples, Sample{Timestamp: ts, Value: v})
	}
	return New(samples...)
}

// Len returns the number of samples.
func (w Window) Len() int {
	return len(w.samples)
}

// IsEmpty reports whether the window holds no samples.
func (w Window) IsEmpty() bool {
	return len(w.samples) == 0
}

// Samples returns a copy of the samples in timestamp order.
func (w Window) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Get returns the value stored at ts.
func (w Window) Get(ts int64) (value bool, ok bool) {
	i := w.search(ts)
	if i < len(w.samples) && w.samples[i].Timestamp == ts {
		return w.samples[i].Value, true
	}
	return false, false
}

// First returns the earliest timestamp. ok is false for an empty window.
func (w Window) First() (ts int64, ok bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	return w.samples[0].Timestamp, true
}

// Last returns the latest timestamp. ok is false for an empty window.
func (w Window) Last() (ts int64, ok bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	return w.samples[len(w.samples)-1].Timestamp, true
}

// Clone returns a window backed by its own array.
func (w Window) Clone() Window {
	if w.samples == nil {
		return Window{}
	}
	return Window{samples: w.Samples()}
}

// Equal reports whether both windows hold the same samples.
func (w Window) Equal(other Window) bool {
	if len(w.samples) != len(other.samples) {
		return false
	}
	for i := range w.samples {
		if w.samples[i] != other.samples[i] {
			return false
		}
	}
	return true
}

// Merge returns the union of w and fragment.
// Where both hold the same timestamp the fragment's value wins.
func (w Window) Merge(fragment Window) Window {
	a, b := w.samples, fragment.samples
	out := make([]Sample, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Timestamp < b[j].Timestamp:
			out = append(out, a[i])
			i++
		case a[i].Timestamp > b[j].Timestamp:
			out = append(out, b[j])
			j++
		default:
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return Window{samples: out}
}

// With returns a copy of w with ts set to value.
func (w Window) With(ts int64, value bool) Window {
	return w.Merge(Window{samples: []Sample{{Timestamp: ts, Value: value}}})
}

// search returns the index of the first sample with Timestamp >= ts.
func (w Window) search(ts int64) int {
	return searchSamples(w.samples, ts)
}

func searchSamples(samples []Sample, ts int64) int {
	return sort.Search(len(samples), func(i int) bool {
		return samples[i].Timestamp >= ts
	})
}

// MarshalJSON encodes the window as {"<ts>": bool, ...} in timestamp order.
func (w Window) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(w.samples)*16)
	buf = append(buf, '{')
	for i, s := range w.samples {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = strconv.AppendInt(buf, s.Timestamp, 10)
		buf = append(buf, '"', ':')
		buf = strconv.AppendBool(buf, s.Value)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON decodes the object form written by MarshalJSON.
func (w *Window) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	samples := make([]Sample, 0, len(raw))
	for k, v := range raw {
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid window timestamp %q: %w", k, err)
		}
		samples = append(samples, Sample{Timestamp: ts, Value: v})
	}
	*w = New(samples...)
	return nil
}
