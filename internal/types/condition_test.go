package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/solatis/windowkeeper/internal/window"
)

const testRuleID = RuleID("0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a59")

func newTimeRecord() *ConditionRecord {
	c := NewConditionRecord(testRuleID, "temp-1", DataTypeNumber, ConditionTypeTime, OpGreater, []string{"25"})
	c.TimeLimit = 10
	return c
}

func TestSetTimeLimit(t *testing.T) {
	cv := ConditionValue{TimeLimit: 30, BaselineSecondsBack: 3600}

	tests := []struct {
		name    string
		ctype   ConditionType
		want    int64
		wantErr error
	}{
		{name: "time condition uses time limit", ctype: ConditionTypeTime, want: 30},
		{name: "statistics condition uses baseline", ctype: ConditionTypeStatistics, want: 3600},
		{name: "basic condition has none", ctype: ConditionTypeBasic, want: 0},
		{name: "unset type fails fast", ctype: ConditionTypeUnset, wantErr: ErrConditionTypeUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConditionRecord(testRuleID, "temp-1", DataTypeNumber, tt.ctype, OpGreater, nil)
			err := c.SetTimeLimit(cv)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetTimeLimit() error = %v, want %v", err, tt.wantErr)
			}
			if c.TimeLimit != tt.want {
				t.Errorf("TimeLimit = %d, want %d", c.TimeLimit, tt.want)
			}
		})
	}
}

func TestNewConditionRecord_CopiesValues(t *testing.T) {
	values := []string{"1", "2"}
	c := NewConditionRecord(testRuleID, "temp-1", DataTypeNumber, ConditionTypeBasic, OpBetween, values)
	values[0] = "changed"

	if c.Values[0] != "1" {
		t.Errorf("Values[0] = %q, want %q", c.Values[0], "1")
	}
}

func TestConditionRecord_EqualAndHash(t *testing.T) {
	a := newTimeRecord()
	a.TimeBasedState = window.New(window.Sample{Timestamp: 0, Value: false}, window.Sample{Timestamp: 2, Value: true})
	b := a.Clone()

	if !a.Equal(b) {
		t.Fatal("Equal() = false for clone")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("Hash() differs for equal records")
	}

	mutations := map[string]func(c *ConditionRecord){
		"window":     func(c *ConditionRecord) { c.TimeBasedState = c.TimeBasedState.With(5, true) },
		"fulfilled":  func(c *ConditionRecord) { c.Fulfilled = true },
		"time limit": func(c *ConditionRecord) { c.TimeLimit = 11 },
		"values":     func(c *ConditionRecord) { c.Values = []string{"26"} },
		"operator":   func(c *ConditionRecord) { c.Operator = OpLess },
		"minimal count": func(c *ConditionRecord) {
			n := int64(3)
			c.MinimalObservationCount = &n
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := a.Clone()
			mutate(c)
			if a.Equal(c) {
				t.Errorf("Equal() = true after changing %s", name)
			}
			if a.Hash() == c.Hash() {
				t.Errorf("Hash() unchanged after changing %s", name)
			}
		})
	}
}

func TestConditionRecord_CloneIsIndependent(t *testing.T) {
	n := int64(5)
	a := newTimeRecord()
	a.MinimalObservationCount = &n
	b := a.Clone()

	b.Values[0] = "99"
	*b.MinimalObservationCount = 7
	b.TimeBasedState = b.TimeBasedState.With(1, true)

	if a.Values[0] != "25" {
		t.Errorf("original Values[0] = %q, want 25", a.Values[0])
	}
	if *a.MinimalObservationCount != 5 {
		t.Errorf("original MinimalObservationCount = %d, want 5", *a.MinimalObservationCount)
	}
	if !a.TimeBasedState.IsEmpty() {
		t.Errorf("original window has %d samples, want 0", a.TimeBasedState.Len())
	}
}

func TestConditionKey(t *testing.T) {
	a := newTimeRecord()
	b := newTimeRecord()
	b.TimeBasedState = b.TimeBasedState.With(3, true)
	b.Fulfilled = true

	if a.Key() != b.Key() {
		t.Error("Key() depends on mutable state")
	}

	other := NewConditionRecord(testRuleID, "temp-1", DataTypeNumber, ConditionTypeStatistics, OpGreater, []string{"25"})
	if a.Key() == other.Key() {
		t.Error("Key() ignores condition type")
	}

	// Concatenation without separator would collide here.
	k1 := NewConditionKey("ab", "c", ConditionTypeTime)
	k2 := NewConditionKey("a", "bc", ConditionTypeTime)
	if k1 == k2 {
		t.Error("NewConditionKey() collides on shifted boundaries")
	}
}

func TestConditionRecord_JSON(t *testing.T) {
	a := newTimeRecord()
	a.Fulfilled = true
	a.TimeBasedState = window.New(window.Sample{Timestamp: 0, Value: false}, window.Sample{Timestamp: 9, Value: true})

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var b ConditionRecord
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !a.Equal(&b) {
		t.Errorf("JSON round trip changed record:\n got %+v\nwant %+v", b, *a)
	}
}

func TestRuleWithConditions_SortedKeysAndClone(t *testing.T) {
	rwc := NewRuleWithConditions(testRuleID)
	for _, ct := range []ConditionType{ConditionTypeTime, ConditionTypeBasic, ConditionTypeStatistics} {
		c := NewConditionRecord(testRuleID, "temp-1", DataTypeNumber, ct, OpGreater, []string{"1"})
		rwc.Conditions[c.Key()] = c
	}

	keys := rwc.SortedKeys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("SortedKeys() not ascending: %v", keys)
		}
	}

	clone := rwc.Clone()
	clone.Conditions[keys[0]].Fulfilled = true
	if rwc.Conditions[keys[0]].Fulfilled {
		t.Error("Clone() shares records with the original")
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseConditionType("sequence"); !errors.Is(err, ErrUnknownConditionType) {
		t.Errorf("ParseConditionType(sequence) error = %v, want ErrUnknownConditionType", err)
	}
	if ct, err := ParseConditionType(" Time "); err != nil || ct != ConditionTypeTime {
		t.Errorf("ParseConditionType(Time) = %v, %v", ct, err)
	}
	if op, err := ParseOperator("NOT   between"); err != nil || op != OpNotBetween {
		t.Errorf("ParseOperator(NOT between) = %v, %v", op, err)
	}
	if _, err := ParseOperator("~="); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("ParseOperator(~=) error = %v, want ErrUnknownOperator", err)
	}
	if dt, err := ParseDataType("number"); err != nil || dt != DataTypeNumber {
		t.Errorf("ParseDataType(number) = %v, %v", dt, err)
	}
	if _, err := ParseDataType("blob"); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("ParseDataType(blob) error = %v, want ErrUnknownDataType", err)
	}
}

func TestParseRuleID(t *testing.T) {
	if _, err := ParseRuleID(string(NewRuleID())); err != nil {
		t.Errorf("ParseRuleID(NewRuleID()) error = %v", err)
	}
	if _, err := ParseRuleID("not-a-uuid"); err == nil {
		t.Error("ParseRuleID(not-a-uuid) error = nil")
	}
}
