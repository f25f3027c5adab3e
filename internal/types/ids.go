package types

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// RuleID identifies a rule as issued by the dashboard (a UUID string).
type RuleID string

// ConditionKey is the stable persistence identity of a condition.
// Derived from the (rule, component, condition type) triple, never from object identity.
type ConditionKey uint64

// NewRuleID generates a UUIDv7 rule identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the state store.
func ParseRuleID(s string) (RuleID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// NewConditionKey hashes the identifying triple of a condition.
// The separator byte cannot occur in UUIDs or the type names, so distinct
// triples do not collide by concatenation.
func NewConditionKey(ruleID RuleID, componentID string, conditionType ConditionType) ConditionKey {
	d := xxhash.New()
	_, _ = d.WriteString(string(ruleID))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(componentID)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(conditionType.String())
	return ConditionKey(d.Sum64())
}

// String returns the decimal form used as map key in JSON and as Redis key suffix.
func (k ConditionKey) String() string {
	return strconv.FormatUint(uint64(k), 10)
}
