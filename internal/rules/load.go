// internal/rules/load.go
package rules

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/solatis/windowkeeper/internal/types"
)

/*
 * Rule loading and validation.
 *
 * Turns dashboard rule definitions into rules whose conditions carry a built
 * checker. The dashboard groups rules by component, so a rule with
 * conditions on several components is listed once per component; the first
 * listing wins.
 *
 * A rule with any invalid condition (unknown type, operator or data type,
 * missing or ill-typed operands, malformed id) is rejected as a whole. The
 * rejections are combined into one error; valid rules still load. Rules not
 * in Active status are skipped without error.
 */

// Condition is a loaded condition record with its checker.
type Condition struct {
	Record  *types.ConditionRecord
	Checker Checker
}

// Rule is a validated rule ready for checking.
type Rule struct {
	ID         types.RuleID
	Name       string
	Operator   string
	Conditions []*Condition
}

// Snapshot returns an empty RuleWithConditions for the rule, one cloned
// record per condition.
func (r *Rule) Snapshot() types.RuleWithConditions {
	out := types.NewRuleWithConditions(r.ID)
	for _, c := range r.Conditions {
		rec := c.Record.Clone()
		out.Conditions[rec.Key()] = rec
	}
	return out
}

// Load validates definitions and builds their checkers.
// The returned error combines every rejected rule; the returned slice holds
// the rules that loaded, in first-seen order.
func Load(defs []types.ComponentRules, recorder FragmentRecorder, stats StatisticsRepository) ([]*Rule, error) {
	var (
		out  []*Rule
		errs error
		seen = make(map[string]struct{})
	)
	for _, cr := range defs {
		for _, def := range cr.Rules {
			if _, dup := seen[def.ID]; dup {
				continue
			}
			seen[def.ID] = struct{}{}

			if def.Status != "" && def.Status != types.RuleStatusActive {
				continue
			}
			rule, err := buildRule(cr.ComponentID, def, recorder, stats)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("rule %s: %w", def.ID, err))
				continue
			}
			out = append(out, rule)
		}
	}
	return out, errs
}

// RuleIDs returns the ids of rules in order.
func RuleIDs(rules []*Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, string(r.ID))
	}
	return ids
}

func buildRule(componentID string, def types.RuleDefinition, recorder FragmentRecorder, stats StatisticsRepository) (*Rule, error) {
	id, err := types.ParseRuleID(def.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid rule id: %w", err)
	}
	rule := &Rule{ID: id, Name: def.Name, Operator: def.Conditions.Operator}

	keys := make(map[types.ConditionKey]struct{})
	for i, cv := range def.Conditions.Values {
		cond, err := buildCondition(id, componentID, cv)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if _, dup := keys[cond.Key()]; dup {
			return nil, fmt.Errorf("condition %d: duplicate %s condition on component %s", i, cond.Type, cond.ComponentID)
		}
		keys[cond.Key()] = struct{}{}

		checker, err := NewChecker(cond, recorder, stats)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		rule.Conditions = append(rule.Conditions, &Condition{Record: cond, Checker: checker})
	}
	return rule, nil
}

func buildCondition(ruleID types.RuleID, componentID string, cv types.ConditionValue) (*types.ConditionRecord, error) {
	ctype, err := types.ParseConditionType(cv.Type)
	if err != nil {
		return nil, err
	}
	op, err := types.ParseOperator(cv.Operator)
	if err != nil {
		return nil, err
	}
	dataType := types.DataTypeUnspecified
	if cv.Component.DataType != "" {
		if dataType, err = types.ParseDataType(cv.Component.DataType); err != nil {
			return nil, err
		}
	}
	if cv.Component.CID != "" {
		componentID = cv.Component.CID
	}

	cond := types.NewConditionRecord(ruleID, componentID, dataType, ctype, op, cv.Values)
	if err := cond.SetTimeLimit(cv); err != nil {
		return nil, err
	}
	if cv.BaselineMinimalInstances != nil {
		n := *cv.BaselineMinimalInstances
		cond.MinimalObservationCount = &n
	}
	return cond, nil
}
