// internal/rules/operators.go
package rules

import (
	"regexp"
	"strings"

	"github.com/solatis/windowkeeper/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the nine dashboard operators with type-aware comparison rules.
 * Values and operands should already be coerced via Coerce() before reaching
 * Compare().
 *
 * Operators:
 *   - ==, !=: Equality, numeric when both sides are numbers
 *   - <, <=, >, >=: Numeric comparison only, false for other types
 *   - between, not between: Inclusive range over two numeric operands
 *   - like: SQL-style pattern (% any run, _ one character) over strings
 *
 * Numeric comparison: float64 on both sides after coercion.
 * Pattern operator: the pattern is compiled once per checker by compileLike.
 */

// Compare applies the operator to value against operands.
// Returns false when operands are missing or of the wrong type.
func Compare(op types.Operator, value any, operands []any) bool {
	switch op {
	case types.OpEqual:
		return len(operands) > 0 && compareEqual(value, operands[0])
	case types.OpNotEqual:
		return len(operands) > 0 && !compareEqual(value, operands[0])
	case types.OpLess:
		c, ok := compareNumeric(value, operands)
		return ok && c < 0
	case types.OpLessOrEqual:
		c, ok := compareNumeric(value, operands)
		return ok && c <= 0
	case types.OpGreater:
		c, ok := compareNumeric(value, operands)
		return ok && c > 0
	case types.OpGreaterOrEqual:
		c, ok := compareNumeric(value, operands)
		return ok && c >= 0
	case types.OpBetween:
		in, ok := compareBetween(value, operands)
		return ok && in
	case types.OpNotBetween:
		in, ok := compareBetween(value, operands)
		return ok && !in
	case types.OpLike:
		if len(operands) == 0 {
			return false
		}
		re, ok := operands[0].(*regexp.Regexp)
		s, isString := value.(string)
		return ok && isString && re.MatchString(s)
	default:
		return false
	}
}

// operandCount returns how many operands op needs.
func operandCount(op types.Operator) int {
	switch op {
	case types.OpBetween, types.OpNotBetween:
		return 2
	case types.OpUnspecified:
		return 0
	default:
		return 1
	}
}

// compareEqual performs equality with numeric comparison when both sides are numbers.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return a == b
}

// compareNumeric performs three-way numeric comparison (-1/0/1) against the first operand.
func compareNumeric(value any, operands []any) (int, bool) {
	if len(operands) == 0 {
		return 0, false
	}
	na, nb, ok := asNumbers(value, operands[0])
	if !ok {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// compareBetween reports whether value lies in [operands[0], operands[1]].
// Bounds given in descending order are swapped.
func compareBetween(value any, operands []any) (bool, bool) {
	if len(operands) < 2 {
		return false, false
	}
	v, ok := value.(float64)
	if !ok {
		return false, false
	}
	lo, hi, ok := asNumbers(operands[0], operands[1])
	if !ok {
		return false, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi, true
}

// asNumbers returns both values as float64 when both are numbers.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := a.(float64)
	nb, okb := b.(float64)
	return na, nb, oka && okb
}

// compileLike turns an SQL-style pattern into an anchored regular expression.
func compileLike(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
