package rules

import (
	"errors"
	"testing"

	"go.uber.org/multierr"

	"github.com/solatis/windowkeeper/internal/types"
)

func conditionValue(ctype, op string, values ...string) types.ConditionValue {
	return types.ConditionValue{
		Component: types.ComponentRef{CID: "temp-1", DataType: "Number"},
		Type:      ctype,
		Operator:  op,
		Values:    values,
		TimeLimit: 10,
	}
}

func TestLoad(t *testing.T) {
	const (
		goodID  = "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a59"
		badType = "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a5a"
		badOp   = "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a5b"
		draftID = "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a5c"
	)
	minimal := int64(4)
	stat := conditionValue("statistics", ">", "2")
	stat.BaselineSecondsBack = 3600
	stat.BaselineMinimalInstances = &minimal

	defs := []types.ComponentRules{
		{
			ComponentID: "temp-1",
			Rules: []types.RuleDefinition{
				{
					ID:     goodID,
					Name:   "overheating",
					Status: types.RuleStatusActive,
					Conditions: types.RuleConditions{
						Operator: "AND",
						Values:   []types.ConditionValue{conditionValue("time", ">", "25"), stat},
					},
				},
				{ID: badType, Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("sequence", ">", "1")}}},
				{ID: badOp, Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("basic", "~=", "1")}}},
				{ID: draftID, Status: types.RuleStatusDraft, Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("sequence", ">", "1")}}},
				{ID: "not-a-uuid", Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("basic", ">", "1")}}},
			},
		},
		{
			// Same rule listed again under another component.
			ComponentID: "temp-2",
			Rules:       []types.RuleDefinition{{ID: goodID, Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("sequence", ">", "1")}}}},
		},
	}

	rules, err := Load(defs, &fakeRecorder{}, &fakeStats{})

	if len(rules) != 1 {
		t.Fatalf("Load() returned %d rules, want 1", len(rules))
	}
	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("Load() returned %d errors, want 3: %v", len(errs), err)
	}
	if !errors.Is(errs[0], types.ErrUnknownConditionType) {
		t.Errorf("errs[0] = %v, want ErrUnknownConditionType", errs[0])
	}
	if !errors.Is(errs[1], types.ErrUnknownOperator) {
		t.Errorf("errs[1] = %v, want ErrUnknownOperator", errs[1])
	}

	r := rules[0]
	if r.ID != goodID || r.Name != "overheating" || r.Operator != "AND" {
		t.Errorf("rule = %+v", r)
	}
	if len(r.Conditions) != 2 {
		t.Fatalf("rule has %d conditions, want 2", len(r.Conditions))
	}
	tc, sc := r.Conditions[0].Record, r.Conditions[1].Record
	if tc.Type != types.ConditionTypeTime || tc.TimeLimit != 10 || tc.ComponentDataType != types.DataTypeNumber {
		t.Errorf("time condition = %+v", tc)
	}
	if sc.Type != types.ConditionTypeStatistics || sc.TimeLimit != 3600 {
		t.Errorf("statistics condition = %+v", sc)
	}
	if sc.MinimalObservationCount == nil || *sc.MinimalObservationCount != 4 {
		t.Errorf("statistics MinimalObservationCount = %v, want 4", sc.MinimalObservationCount)
	}
	if _, ok := r.Conditions[0].Checker.(*TimeBasedChecker); !ok {
		t.Errorf("time condition checker = %T", r.Conditions[0].Checker)
	}

	if got := RuleIDs(rules); len(got) != 1 || got[0] != goodID {
		t.Errorf("RuleIDs() = %v", got)
	}
}

func TestLoad_DuplicateConditionRejected(t *testing.T) {
	defs := []types.ComponentRules{{
		ComponentID: "temp-1",
		Rules: []types.RuleDefinition{{
			ID: "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a59",
			Conditions: types.RuleConditions{Values: []types.ConditionValue{
				conditionValue("time", ">", "25"),
				conditionValue("time", "<", "40"),
			}},
		}},
	}}

	rules, err := Load(defs, &fakeRecorder{}, &fakeStats{})
	if err == nil || len(rules) != 0 {
		t.Errorf("Load() = %d rules, %v; want rejection", len(rules), err)
	}
}

func TestRule_Snapshot(t *testing.T) {
	defs := []types.ComponentRules{{
		ComponentID: "temp-1",
		Rules: []types.RuleDefinition{{
			ID:         "0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a59",
			Conditions: types.RuleConditions{Values: []types.ConditionValue{conditionValue("time", ">", "25")}},
		}},
	}}
	rules, err := Load(defs, &fakeRecorder{}, &fakeStats{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap := rules[0].Snapshot()
	key := rules[0].Conditions[0].Record.Key()
	rec, ok := snap.Conditions[key]
	if !ok {
		t.Fatalf("snapshot missing key %s", key)
	}
	rec.Fulfilled = true
	if rules[0].Conditions[0].Record.Fulfilled {
		t.Error("Snapshot() shares records with the rule")
	}
}
