package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/solatis/windowkeeper/internal/types"
)

const testRuleID = types.RuleID("0190a6e2-7c1f-7b3a-9d42-5f1e2c3b4a59")

type recorded struct {
	key       types.ConditionKey
	timestamp int64
	value     bool
}

type fakeRecorder struct {
	entries []recorded
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, cond *types.ConditionRecord, timestamp int64, value bool) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, recorded{key: cond.Key(), timestamp: timestamp, value: value})
	return nil
}

type fakeStats struct {
	values   []float64
	err      error
	from, to int64
}

func (f *fakeStats) Values(_ context.Context, _ string, from, to int64) ([]float64, error) {
	f.from, f.to = from, to
	return f.values, f.err
}

func condition(ctype types.ConditionType, dataType types.DataType, op types.Operator, values ...string) *types.ConditionRecord {
	return types.NewConditionRecord(testRuleID, "temp-1", dataType, ctype, op, values)
}

func observe(ts int64, value string) types.Observation {
	return types.Observation{ComponentID: "temp-1", Timestamp: ts, Value: value}
}

func TestNewChecker_Dispatch(t *testing.T) {
	rec := &fakeRecorder{}
	stats := &fakeStats{}

	tests := []struct {
		name    string
		cond    *types.ConditionRecord
		want    string
		wantErr error
	}{
		{name: "basic", cond: condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpGreater, "1"), want: "*rules.BasicChecker"},
		{name: "time", cond: condition(types.ConditionTypeTime, types.DataTypeNumber, types.OpGreater, "1"), want: "*rules.TimeBasedChecker"},
		{name: "statistics", cond: condition(types.ConditionTypeStatistics, types.DataTypeNumber, types.OpGreater, "2"), want: "*rules.StatisticsChecker"},
		{name: "unset type", cond: condition(types.ConditionTypeUnset, types.DataTypeNumber, types.OpGreater, "1"), wantErr: types.ErrUnknownConditionType},
		{name: "out of range type", cond: condition(types.ConditionType(42), types.DataTypeNumber, types.OpGreater, "1"), wantErr: types.ErrUnknownConditionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewChecker(tt.cond, rec, stats)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewChecker() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			var name string
			switch got.(type) {
			case *BasicChecker:
				name = "*rules.BasicChecker"
			case *TimeBasedChecker:
				name = "*rules.TimeBasedChecker"
			case *StatisticsChecker:
				name = "*rules.StatisticsChecker"
			}
			if name != tt.want {
				t.Errorf("NewChecker() = %T, want %s", got, tt.want)
			}
		})
	}
}

func TestNewBasicChecker_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cond    *types.ConditionRecord
		wantErr error
	}{
		{name: "no operator", cond: condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpUnspecified, "1"), wantErr: types.ErrUnknownOperator},
		{name: "no operand", cond: condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpGreater), wantErr: types.ErrMissingOperand},
		{name: "between with one operand", cond: condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpBetween, "1"), wantErr: types.ErrMissingOperand},
		{name: "operand not a number", cond: condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpGreater, "warm"), wantErr: types.ErrCoercionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBasicChecker(tt.cond); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewBasicChecker() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBasicChecker_Check(t *testing.T) {
	ctx := context.Background()

	gt, err := NewBasicChecker(condition(types.ConditionTypeBasic, types.DataTypeNumber, types.OpGreater, "25"))
	if err != nil {
		t.Fatalf("NewBasicChecker() error = %v", err)
	}
	if ok, err := gt.Check(ctx, observe(1, "26.5")); err != nil || !ok {
		t.Errorf("Check(26.5) = %v, %v, want true", ok, err)
	}
	if ok, err := gt.Check(ctx, observe(1, "25")); err != nil || ok {
		t.Errorf("Check(25) = %v, %v, want false", ok, err)
	}
	if _, err := gt.Check(ctx, observe(1, "n/a")); !errors.Is(err, types.ErrCoercionFailed) {
		t.Errorf("Check(n/a) error = %v, want ErrCoercionFailed", err)
	}

	door, err := NewBasicChecker(condition(types.ConditionTypeBasic, types.DataTypeBoolean, types.OpEqual, "true"))
	if err != nil {
		t.Fatalf("NewBasicChecker() error = %v", err)
	}
	if ok, _ := door.Check(ctx, observe(1, "1")); !ok {
		t.Error("Check(1) on boolean == true = false, want true")
	}

	name, err := NewBasicChecker(condition(types.ConditionTypeBasic, types.DataTypeString, types.OpLike, "err%"))
	if err != nil {
		t.Fatalf("NewBasicChecker() error = %v", err)
	}
	if ok, _ := name.Check(ctx, observe(1, "error: overheating")); !ok {
		t.Error("Check(error: overheating) on like err% = false, want true")
	}
}

func TestTimeBasedChecker_RecordsVerdicts(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	cond := condition(types.ConditionTypeTime, types.DataTypeNumber, types.OpGreater, "25")

	c, err := NewTimeBasedChecker(cond, rec)
	if err != nil {
		t.Fatalf("NewTimeBasedChecker() error = %v", err)
	}
	for _, obs := range []types.Observation{observe(0, "20"), observe(2, "30"), observe(9, "31")} {
		if _, err := c.Check(ctx, obs); err != nil {
			t.Fatalf("Check(%v) error = %v", obs, err)
		}
	}

	want := []recorded{
		{key: cond.Key(), timestamp: 0, value: false},
		{key: cond.Key(), timestamp: 2, value: true},
		{key: cond.Key(), timestamp: 9, value: true},
	}
	if len(rec.entries) != len(want) {
		t.Fatalf("recorded %d entries, want %d", len(rec.entries), len(want))
	}
	for i := range want {
		if rec.entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, rec.entries[i], want[i])
		}
	}
}

func TestTimeBasedChecker_Errors(t *testing.T) {
	cond := condition(types.ConditionTypeTime, types.DataTypeNumber, types.OpGreater, "25")
	if _, err := NewTimeBasedChecker(cond, nil); err == nil {
		t.Error("NewTimeBasedChecker(nil recorder) error = nil")
	}

	boom := errors.New("boom")
	c, err := NewTimeBasedChecker(cond, &fakeRecorder{err: boom})
	if err != nil {
		t.Fatalf("NewTimeBasedChecker() error = %v", err)
	}
	if _, err := c.Check(context.Background(), observe(1, "30")); !errors.Is(err, boom) {
		t.Errorf("Check() error = %v, want recorder error", err)
	}
}
