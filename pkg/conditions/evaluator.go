// Package conditions evaluates branching conditions against an execution scope.
package conditions

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator evaluates conditions. It never panics on malformed input: unknown
// operators, bad patterns and bad expressions evaluate to false and are logged.
type Evaluator struct {
	logger *slog.Logger

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger:   logger.With("module", "condition_evaluator"),
		programs: make(map[string]*vm.Program),
	}
}

// EvaluateSpec evaluates a condition node configuration: the condition group
// and, when present, the expression must both hold.
func (e *Evaluator) EvaluateSpec(spec models.ConditionSpec, scope models.Scope) bool {
	if spec.Expression != "" && len(spec.Conditions) == 0 {
		return e.EvaluateExpression(spec.Expression, scope)
	}

	if !e.evaluateGroup(spec.Group(), scope) {
		return false
	}

	if spec.Expression == "" {
		return true
	}

	return e.EvaluateExpression(spec.Expression, scope)
}

// Evaluate evaluates a single condition or a condition group.
//
// An empty group is vacuously true under AND and false under OR.
func (e *Evaluator) Evaluate(cond models.Condition, scope models.Scope) bool {
	if cond.IsGroup() {
		return e.evaluateGroup(cond, scope)
	}

	op, ok := operators[cond.Operator]
	if !ok {
		e.logger.Warn("Unknown condition operator", "operator", cond.Operator, "field", cond.Field)

		return false
	}

	field, _ := scope.Resolve(cond.Field)

	result, valid := op(field, cond.Value)
	if !valid {
		e.logger.Warn("Malformed condition value",
			"operator", cond.Operator,
			"field", cond.Field,
			"value", cond.Value)

		return false
	}

	return result
}

func (e *Evaluator) evaluateGroup(group models.Condition, scope models.Scope) bool {
	switch group.LogicOperator {
	case models.LogicOr:
		for _, sub := range group.Conditions {
			if e.Evaluate(sub, scope) {
				return true
			}
		}

		return false
	case models.LogicAnd, "":
		for _, sub := range group.Conditions {
			if !e.Evaluate(sub, scope) {
				return false
			}
		}

		return true
	default:
		e.logger.Warn("Unknown logic operator", "logic_operator", group.LogicOperator)

		return false
	}
}

// EvaluateExpression evaluates an expr-lang boolean expression. Variables and
// trigger fields are available by name (variables win), and under the
// "vars" and "trigger" namespaces.
func (e *Evaluator) EvaluateExpression(expression string, scope models.Scope) bool {
	program, err := e.compile(expression)
	if err != nil {
		e.logger.Warn("Invalid condition expression", "expression", expression, "error", err)

		return false
	}

	env := make(map[string]any, len(scope.TriggerData)+len(scope.Variables)+2)
	maps.Copy(env, scope.TriggerData)
	maps.Copy(env, scope.Variables)
	env["vars"] = scope.Variables
	env["trigger"] = scope.TriggerData

	out, err := expr.Run(program, env)
	if err != nil {
		e.logger.Warn("Condition expression failed", "expression", expression, "error", err)

		return false
	}

	result, ok := out.(bool)

	return ok && result
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()

	return program, nil
}

// ValidateExpression reports whether expression compiles.
func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.compile(expression)

	return err
}
