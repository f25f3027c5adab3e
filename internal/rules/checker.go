// internal/rules/checker.go
package rules

import (
	"context"
	"fmt"

	"github.com/solatis/windowkeeper/internal/types"
)

/*
 * Checker dispatch.
 *
 * Each condition type has one checking strategy:
 *   - BASIC: compare the observation value against the operands
 *   - TIME: basic comparison, verdict recorded into the condition's fragment
 *   - STATISTICS: compare against a baseline built from recent observations
 *
 * NewChecker is the only place that maps a type to a strategy. An unknown
 * type is a configuration error: the rule carrying it is rejected and never
 * retried.
 *
 * Checkers hold no per-observation state of their own. TIME verdicts go to a
 * FragmentRecorder, baselines come from a StatisticsRepository; both are
 * supplied by the engine host.
 */

// Checker evaluates one condition against one observation.
type Checker interface {
	Check(ctx context.Context, obs types.Observation) (bool, error)
}

// FragmentRecorder collects time-based verdicts into the fragment that is
// later merged into the condition's persisted window.
type FragmentRecorder interface {
	Record(ctx context.Context, cond *types.ConditionRecord, timestamp int64, value bool) error
}

// StatisticsRepository serves the baseline observations of a component.
type StatisticsRepository interface {
	// Values returns the numeric observations of componentID with
	// from <= timestamp < to.
	Values(ctx context.Context, componentID string, from, to int64) ([]float64, error)
}

// NewChecker builds the checker for cond's type.
// Returns an error wrapping ErrUnknownConditionType for types it does not know,
// and operand or operator errors from the chosen strategy.
func NewChecker(cond *types.ConditionRecord, recorder FragmentRecorder, stats StatisticsRepository) (Checker, error) {
	switch cond.Type {
	case types.ConditionTypeBasic:
		return NewBasicChecker(cond)
	case types.ConditionTypeTime:
		return NewTimeBasedChecker(cond, recorder)
	case types.ConditionTypeStatistics:
		return NewStatisticsChecker(cond, stats)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownConditionType, cond.Type)
	}
}
