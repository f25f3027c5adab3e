// internal/rules/coercion.go
package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/windowkeeper/internal/types"
)

/*
 * Type coercion for condition checking.
 *
 * Telemetry values and condition operands both arrive as strings. Coerce reads
 * them as the component's declared data type before any comparison happens.
 *
 * Type modes:
 *   - Number: Strict - trimmed string parsed as float64, empty rejected
 *   - String: Lenient - value used as-is
 *   - Boolean: Strict - strconv.ParseBool forms only ("true", "0", "F", ...)
 *   - Unspecified: Lenient - number when it parses as one, string otherwise
 *
 * Operands are coerced once when the checker is built, so a rule with an
 * operand that does not fit its component type is rejected at load time.
 * Observation values are coerced per check.
 */

// Coerce converts a raw string value to the Go representation of dataType:
// float64 for Number, string for String, bool for Boolean.
// Returns ErrCoercionFailed for values that do not fit the type.
func Coerce(raw string, dataType types.DataType) (any, error) {
	switch dataType {
	case types.DataTypeNumber:
		return coerceNumber(raw)
	case types.DataTypeString:
		return raw, nil
	case types.DataTypeBoolean:
		return coerceBoolean(raw)
	case types.DataTypeUnspecified:
		if f, err := coerceNumber(raw); err == nil {
			return f, nil
		}
		return raw, nil
	default:
		return nil, types.ErrCoercionFailed
	}
}

// CoerceNumber reads raw as a number regardless of declared type.
// Statistics conditions only make sense on numeric telemetry.
func CoerceNumber(raw string) (float64, error) {
	return coerceNumber(raw)
}

// coerceNumber trims whitespace and parses a float64.
// Whitespace-only strings are not valid numbers.
func coerceNumber(raw string) (float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, types.ErrCoercionFailed
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, types.ErrCoercionFailed
	}
	return f, nil
}

// coerceBoolean accepts the strconv.ParseBool forms only.
// Numbers other than 0 and 1 are rejected to avoid "2 is true" ambiguity.
func coerceBoolean(raw string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, types.ErrCoercionFailed
	}
	return b, nil
}
