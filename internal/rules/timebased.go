package rules

import (
	"context"
	"errors"

	"github.com/solatis/windowkeeper/internal/types"
)

// TimeBasedChecker records the basic verdict of every observation at its
// timestamp. Whether the condition holds is decided later by the window
// evaluator, so Check returns the instantaneous verdict only.
type TimeBasedChecker struct {
	basic    *BasicChecker
	recorder FragmentRecorder
}

// NewTimeBasedChecker builds a checker that records into recorder.
func NewTimeBasedChecker(cond *types.ConditionRecord, recorder FragmentRecorder) (*TimeBasedChecker, error) {
	if recorder == nil {
		return nil, errors.New("time-based checker requires a fragment recorder")
	}
	basic, err := NewBasicChecker(cond)
	if err != nil {
		return nil, err
	}
	return &TimeBasedChecker{basic: basic, recorder: recorder}, nil
}

// Check records the verdict and returns it.
func (c *TimeBasedChecker) Check(ctx context.Context, obs types.Observation) (bool, error) {
	v, err := c.basic.verdict(obs.Value)
	if err != nil {
		return false, err
	}
	if err := c.recorder.Record(ctx, c.basic.cond, obs.Timestamp, v); err != nil {
		return false, err
	}
	return v, nil
}
