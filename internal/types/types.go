// Package types provides domain models shared across windowkeeper components.
//
// Condition records, rule snapshots and rule definitions live here so that
// the engine host, the checkers, the state store backends and the dashboard
// client agree on one representation. The time window itself lives in
// internal/window and carries no dependency on this package.
package types

import (
	"fmt"
	"strings"
)

// ConditionType selects the evaluation strategy of a condition.
// The zero value means "not set yet".
type ConditionType int

const (
	ConditionTypeUnset ConditionType = iota
	ConditionTypeBasic
	ConditionTypeTime
	ConditionTypeStatistics
)

// String returns the wire name of the condition type.
func (t ConditionType) String() string {
	switch t {
	case ConditionTypeBasic:
		return "basic"
	case ConditionTypeTime:
		return "time"
	case ConditionTypeStatistics:
		return "statistics"
	case ConditionTypeUnset:
		return "unset"
	default:
		return fmt.Sprintf("ConditionType(%d)", int(t))
	}
}

// ParseConditionType converts a dashboard condition type to ConditionType.
// Unknown names return ErrUnknownConditionType.
func ParseConditionType(s string) (ConditionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return ConditionTypeBasic, nil
	case "time":
		return ConditionTypeTime, nil
	case "statistics":
		return ConditionTypeStatistics, nil
	default:
		return ConditionTypeUnset, fmt.Errorf("%w: %q", ErrUnknownConditionType, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ConditionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ConditionType) UnmarshalText(data []byte) error {
	if string(data) == "unset" || len(data) == 0 {
		*t = ConditionTypeUnset
		return nil
	}
	parsed, err := ParseConditionType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DataType is the declared type of a component's telemetry values.
type DataType int

const (
	DataTypeUnspecified DataType = iota
	DataTypeNumber
	DataTypeString
	DataTypeBoolean
)

// String returns the wire name of the data type.
func (d DataType) String() string {
	switch d {
	case DataTypeNumber:
		return "Number"
	case DataTypeString:
		return "String"
	case DataTypeBoolean:
		return "Boolean"
	default:
		return "Unspecified"
	}
}

// ParseDataType converts a dashboard data type name to DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "number":
		return DataTypeNumber, nil
	case "string":
		return DataTypeString, nil
	case "boolean":
		return DataTypeBoolean, nil
	default:
		return DataTypeUnspecified, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(data []byte) error {
	if string(data) == "Unspecified" || len(data) == 0 {
		*d = DataTypeUnspecified
		return nil
	}
	parsed, err := ParseDataType(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Operator is a comparison operator of a condition.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpBetween
	OpNotBetween
	OpLike
)

var operatorNames = map[Operator]string{
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpBetween:        "between",
	OpNotBetween:     "not between",
	OpLike:           "like",
}

// String returns the wire symbol of the operator.
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unspecified"
}

// ParseOperator converts a dashboard operator symbol to Operator.
func ParseOperator(s string) (Operator, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for op, name := range operatorNames {
		if name == norm {
			return op, nil
		}
	}
	return OpUnspecified, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(data []byte) error {
	if string(data) == "unspecified" || len(data) == 0 {
		*o = OpUnspecified
		return nil
	}
	parsed, err := ParseOperator(string(data))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Observation is one telemetry sample of a component.
// Timestamp is event time in seconds; Value is the raw string form.
type Observation struct {
	ComponentID string `json:"componentId"`
	Timestamp   int64  `json:"timestamp"`
	Value       string `json:"value"`
}
