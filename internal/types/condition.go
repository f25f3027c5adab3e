// internal/types/condition.go
package types

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/solatis/windowkeeper/internal/window"
)

/*
 * Condition records and rule snapshots.
 *
 * A ConditionRecord is one (rule, component, condition type) triple together
 * with its accumulated window. Configuration fields are fixed at construction;
 * Fulfilled and TimeBasedState change on every engine pass.
 *
 * Records are passed by pointer but treated as values: the engine host clones
 * a record before changing it, so snapshots already emitted downstream keep
 * their contents. Equal and Hash are structural over every field, window
 * contents included.
 */

// ConditionRecord is a single rule condition and its window state.
type ConditionRecord struct {
	RuleID                  RuleID        `json:"ruleId"`
	ComponentID             string        `json:"componentId"`
	ComponentDataType       DataType      `json:"componentDataType"`
	Type                    ConditionType `json:"type"`
	Operator                Operator      `json:"operator"`
	Values                  []string      `json:"values"`
	TimeLimit               int64         `json:"timeLimit"`
	MinimalObservationCount *int64        `json:"minimalObservationCountInTimeWindow,omitempty"`
	Fulfilled               bool          `json:"fulfilled"`
	TimeBasedState          window.Window `json:"timeBasedState"`
}

// NewConditionRecord creates a record with its immutable configuration.
// values is copied.
func NewConditionRecord(ruleID RuleID, componentID string, dataType DataType, conditionType ConditionType, op Operator, values []string) *ConditionRecord {
	return &ConditionRecord{
		RuleID:            ruleID,
		ComponentID:       componentID,
		ComponentDataType: dataType,
		Type:              conditionType,
		Operator:          op,
		Values:            append([]string(nil), values...),
	}
}

// Key returns the persistence identity of the record.
func (c *ConditionRecord) Key() ConditionKey {
	return NewConditionKey(c.RuleID, c.ComponentID, c.Type)
}

// IsTimeBased reports whether the record is a TIME condition.
func (c *ConditionRecord) IsTimeBased() bool {
	return c.Type == ConditionTypeTime
}

// IsStatistics reports whether the record is a STATISTICS condition.
func (c *ConditionRecord) IsStatistics() bool {
	return c.Type == ConditionTypeStatistics
}

// SetTimeLimit takes the time limit from a condition definition.
// TIME conditions use TimeLimit, STATISTICS conditions use BaselineSecondsBack,
// BASIC conditions have none. Fails with ErrConditionTypeUnset when Type is unset.
func (c *ConditionRecord) SetTimeLimit(cv ConditionValue) error {
	switch c.Type {
	case ConditionTypeUnset:
		return ErrConditionTypeUnset
	case ConditionTypeTime:
		c.TimeLimit = cv.TimeLimit
	case ConditionTypeStatistics:
		c.TimeLimit = cv.BaselineSecondsBack
	}
	return nil
}

// Clone returns a deep copy.
func (c *ConditionRecord) Clone() *ConditionRecord {
	if c == nil {
		return nil
	}
	out := *c
	out.Values = append([]string(nil), c.Values...)
	if c.MinimalObservationCount != nil {
		n := *c.MinimalObservationCount
		out.MinimalObservationCount = &n
	}
	out.TimeBasedState = c.TimeBasedState.Clone()
	return &out
}

// Equal reports whether every field of both records matches.
func (c *ConditionRecord) Equal(other *ConditionRecord) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.RuleID != other.RuleID ||
		c.ComponentID != other.ComponentID ||
		c.ComponentDataType != other.ComponentDataType ||
		c.Type != other.Type ||
		c.Operator != other.Operator ||
		c.TimeLimit != other.TimeLimit ||
		c.Fulfilled != other.Fulfilled {
		return false
	}
	if len(c.Values) != len(other.Values) {
		return false
	}
	for i := range c.Values {
		if c.Values[i] != other.Values[i] {
			return false
		}
	}
	if (c.MinimalObservationCount == nil) != (other.MinimalObservationCount == nil) {
		return false
	}
	if c.MinimalObservationCount != nil && *c.MinimalObservationCount != *other.MinimalObservationCount {
		return false
	}
	return c.TimeBasedState.Equal(other.TimeBasedState)
}

// Hash returns a structural hash consistent with Equal.
func (c *ConditionRecord) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(int64(len(s)))
		_, _ = d.WriteString(s)
	}

	writeString(string(c.RuleID))
	writeString(c.ComponentID)
	writeInt(int64(c.ComponentDataType))
	writeInt(int64(c.Type))
	writeInt(int64(c.Operator))
	writeInt(int64(len(c.Values)))
	for _, v := range c.Values {
		writeString(v)
	}
	writeInt(c.TimeLimit)
	if c.MinimalObservationCount != nil {
		writeInt(1)
		writeInt(*c.MinimalObservationCount)
	} else {
		writeInt(0)
	}
	if c.Fulfilled {
		writeInt(1)
	} else {
		writeInt(0)
	}
	for _, s := range c.TimeBasedState.Samples() {
		writeInt(s.Timestamp)
		if s.Value {
			writeInt(1)
		} else {
			writeInt(0)
		}
	}
	return d.Sum64()
}

// RuleWithConditions is a rule id plus its conditions keyed by ConditionKey.
// Snapshots are rebuilt on every emission, never mutated after hand-off.
type RuleWithConditions struct {
	RuleID     RuleID                            `json:"ruleId"`
	Conditions map[ConditionKey]*ConditionRecord `json:"conditions"`
}

// NewRuleWithConditions creates an empty snapshot for ruleID.
func NewRuleWithConditions(ruleID RuleID) RuleWithConditions {
	return RuleWithConditions{
		RuleID:     ruleID,
		Conditions: make(map[ConditionKey]*ConditionRecord),
	}
}

// SortedKeys returns the condition keys in ascending order.
func (r RuleWithConditions) SortedKeys() []ConditionKey {
	keys := make([]ConditionKey, 0, len(r.Conditions))
	for k := range r.Conditions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a snapshot whose records are deep copies.
func (r RuleWithConditions) Clone() RuleWithConditions {
	out := NewRuleWithConditions(r.RuleID)
	for k, c := range r.Conditions {
		out.Conditions[k] = c.Clone()
	}
	return out
}
