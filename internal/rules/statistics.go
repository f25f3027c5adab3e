// internal/rules/statistics.go
package rules

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/solatis/windowkeeper/internal/types"
)

/*
 * Statistics condition checking.
 *
 * The baseline is every numeric observation of the component in the last
 * TimeLimit seconds before the observation being checked (TimeLimit holds
 * baselineSecondsBack for statistics conditions). The first operand k is a
 * multiplier of the baseline's population standard deviation:
 *
 *   - >, >=: value against mean + k*sd
 *   - <, <=: value against mean - k*sd
 *   - between: |value - mean| <= k*sd
 *   - not between: |value - mean| > k*sd
 *
 * Fewer baseline samples than MinimalObservationCount never fulfill.
 */

// defaultMinimalObservations applies when the condition sets no minimum.
const defaultMinimalObservations = 1

// StatisticsChecker compares observations against a moving baseline.
type StatisticsChecker struct {
	cond       *types.ConditionRecord
	repo       StatisticsRepository
	multiplier float64
	minimal    int
}

// NewStatisticsChecker validates the operator and reads the deviation multiplier.
func NewStatisticsChecker(cond *types.ConditionRecord, repo StatisticsRepository) (*StatisticsChecker, error) {
	if repo == nil {
		return nil, errors.New("statistics checker requires a statistics repository")
	}
	switch cond.Operator {
	case types.OpGreater, types.OpGreaterOrEqual, types.OpLess, types.OpLessOrEqual,
		types.OpBetween, types.OpNotBetween:
	default:
		return nil, fmt.Errorf("%w: %s on statistics condition", types.ErrUnknownOperator, cond.Operator)
	}
	if len(cond.Values) == 0 {
		return nil, fmt.Errorf("%w: statistics condition needs a deviation multiplier", types.ErrMissingOperand)
	}
	k, err := CoerceNumber(cond.Values[0])
	if err != nil {
		return nil, fmt.Errorf("deviation multiplier %q: %w", cond.Values[0], err)
	}

	minimal := defaultMinimalObservations
	if cond.MinimalObservationCount != nil && *cond.MinimalObservationCount > 0 {
		minimal = int(*cond.MinimalObservationCount)
	}
	return &StatisticsChecker{cond: cond, repo: repo, multiplier: k, minimal: minimal}, nil
}

// Check loads the baseline and compares the observation against it.
func (c *StatisticsChecker) Check(ctx context.Context, obs types.Observation) (bool, error) {
	v, err := CoerceNumber(obs.Value)
	if err != nil {
		return false, fmt.Errorf("component %s value %q: %w", c.cond.ComponentID, obs.Value, err)
	}

	baseline, err := c.repo.Values(ctx, c.cond.ComponentID, obs.Timestamp-c.cond.TimeLimit, obs.Timestamp)
	if err != nil {
		return false, fmt.Errorf("load baseline for %s: %w", c.cond.ComponentID, err)
	}
	if len(baseline) < c.minimal {
		return false, nil
	}

	mean, err := stats.Mean(stats.Float64Data(baseline))
	if err != nil {
		return false, nil
	}
	sd, err := stats.StandardDeviation(stats.Float64Data(baseline))
	if err != nil {
		return false, nil
	}
	return c.compare(v, mean, c.multiplier*sd), nil
}

func (c *StatisticsChecker) compare(v, mean, spread float64) bool {
	switch c.cond.Operator {
	case types.OpGreater:
		return v > mean+spread
	case types.OpGreaterOrEqual:
		return v >= mean+spread
	case types.OpLess:
		return v < mean-spread
	case types.OpLessOrEqual:
		return v <= mean-spread
	case types.OpBetween:
		return math.Abs(v-mean) <= spread
	case types.OpNotBetween:
		return math.Abs(v-mean) > spread
	default:
		return false
	}
}
