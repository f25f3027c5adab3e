package rules

import (
	"context"
	"fmt"

	"github.com/solatis/windowkeeper/internal/types"
)

// BasicChecker compares each observation value against fixed operands.
type BasicChecker struct {
	cond     *types.ConditionRecord
	operands []any
}

// NewBasicChecker coerces cond's operands to the component data type.
// Fails when the operator is unknown, operands are missing, or an operand
// does not fit the data type.
func NewBasicChecker(cond *types.ConditionRecord) (*BasicChecker, error) {
	operands, err := compileOperands(cond)
	if err != nil {
		return nil, err
	}
	return &BasicChecker{cond: cond, operands: operands}, nil
}

// Check coerces the observation value and applies the operator.
// A value that does not fit the data type returns ErrCoercionFailed.
func (c *BasicChecker) Check(_ context.Context, obs types.Observation) (bool, error) {
	return c.verdict(obs.Value)
}

func (c *BasicChecker) verdict(raw string) (bool, error) {
	value, err := Coerce(raw, c.cond.ComponentDataType)
	if err != nil {
		return false, fmt.Errorf("component %s value %q: %w", c.cond.ComponentID, raw, err)
	}
	return Compare(c.cond.Operator, value, c.operands), nil
}

func compileOperands(cond *types.ConditionRecord) ([]any, error) {
	if cond.Operator == types.OpUnspecified {
		return nil, fmt.Errorf("%w: condition on %s has none", types.ErrUnknownOperator, cond.ComponentID)
	}
	need := operandCount(cond.Operator)
	if len(cond.Values) < need {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", types.ErrMissingOperand, cond.Operator, need, len(cond.Values))
	}

	if cond.Operator == types.OpLike {
		re, err := compileLike(cond.Values[0])
		if err != nil {
			return nil, fmt.Errorf("like pattern %q: %w", cond.Values[0], err)
		}
		return []any{re}, nil
	}

	operands := make([]any, 0, need)
	for _, raw := range cond.Values[:need] {
		v, err := Coerce(raw, cond.ComponentDataType)
		if err != nil {
			return nil, fmt.Errorf("operand %q for %s: %w", raw, cond.ComponentDataType, err)
		}
		operands = append(operands, v)
	}
	return operands, nil
}
