package types

import "errors"

// Sentinel errors for windowkeeper operations.
var (
	// ErrUnknownConditionType indicates a condition type outside BASIC/TIME/STATISTICS.
	// Configuration error: the rule definition is rejected and never retried.
	ErrUnknownConditionType = errors.New("unrecognized condition type")

	// ErrConditionTypeUnset indicates a time limit was requested before the condition type was set.
	ErrConditionTypeUnset = errors.New("condition type must be set before time limit")

	// ErrUnknownOperator indicates an operator string that no checker understands.
	ErrUnknownOperator = errors.New("unrecognized operator")

	// ErrUnknownDataType indicates a component data type outside Number/String/Boolean.
	ErrUnknownDataType = errors.New("unrecognized component data type")

	// ErrMissingOperand indicates a condition without the operands its operator needs.
	ErrMissingOperand = errors.New("condition is missing operands")

	// ErrCoercionFailed indicates an observation value that cannot be read as the component data type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrStateNotFound indicates no persisted state exists for a condition key.
	ErrStateNotFound = errors.New("condition state not found")
)
