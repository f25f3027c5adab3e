// internal/types/rules.go
package types

/*
 * Rule definitions as served by the dashboard.
 *
 * The dashboard groups active rules by component. Each rule carries a list of
 * condition definitions; a rule-level operator combines their verdicts, which
 * happens downstream of this service and is only carried through here.
 *
 * Key types:
 *   - ComponentRules: rules attached to one component
 *   - RuleDefinition: one rule with its conditions
 *   - ConditionValue: one condition definition (type, operator, operands, limits)
 */

// Rule statuses known to the dashboard.
const (
	RuleStatusActive   = "Active"
	RuleStatusArchived = "Archived"
	RuleStatusOnHold   = "OnHold"
	RuleStatusDraft    = "Draft"
	RuleStatusDeleted  = "Deleted"
)

// RuleStatuses lists every rule status, in dashboard order.
func RuleStatuses() []string {
	return []string{RuleStatusActive, RuleStatusArchived, RuleStatusOnHold, RuleStatusDraft, RuleStatusDeleted}
}

// ComponentRef identifies the component a condition observes.
type ComponentRef struct {
	CID      string `json:"cid"`
	Name     string `json:"name,omitempty"`
	DataType string `json:"dataType"`
}

// ConditionValue is a condition definition.
// TimeLimit applies to time conditions, BaselineSecondsBack and
// BaselineMinimalInstances to statistics conditions.
type ConditionValue struct {
	Component                ComponentRef `json:"component"`
	Type                     string       `json:"type"`
	Operator                 string       `json:"operator"`
	Values                   []string     `json:"values"`
	TimeLimit                int64        `json:"timeLimit,omitempty"`
	BaselineSecondsBack      int64        `json:"baselineSecondsBack,omitempty"`
	BaselineMinimalInstances *int64       `json:"baselineMinimalInstances,omitempty"`
}

// RuleConditions is the condition list of a rule with its combining operator.
type RuleConditions struct {
	Operator string           `json:"operator"`
	Values   []ConditionValue `json:"values"`
}

// RuleDefinition is a rule as defined on the dashboard.
type RuleDefinition struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Status     string         `json:"status,omitempty"`
	Conditions RuleConditions `json:"conditions"`
}

// ComponentRules are the rules attached to one component.
type ComponentRules struct {
	ComponentID string           `json:"componentId"`
	Rules       []RuleDefinition `json:"rules"`
}
