package services

import (
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// ParamValidator checks action parameters against the handler schema.
type ParamValidator interface {
	ValidateParams(actionType models.ActionType, params map[string]any) error
}

// ExpressionValidator checks that a condition expression compiles.
type ExpressionValidator interface {
	ValidateExpression(expression string) error
}

// GraphValidator checks a workflow definition before it is stored or
// activated. Params and Expressions are optional.
type GraphValidator struct {
	validate    *validator.Validate
	params      ParamValidator
	expressions ExpressionValidator
}

func NewGraphValidator(validate *validator.Validate, params ParamValidator, expressions ExpressionValidator) *GraphValidator {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &GraphValidator{validate: validate, params: params, expressions: expressions}
}

// Validate returns a *ValidationError listing every problem, or nil.
func (g *GraphValidator) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	var problems []string

	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	err := g.validate.Struct(workflow)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate workflow: %w", err)
		}

		for _, fe := range fieldErrs {
			report("%s: failed %q", fe.Namespace(), fe.Tag())
		}
	}

	if workflow.TriggerType != "" && !workflow.TriggerType.IsValid() {
		report("unknown trigger type %q", workflow.TriggerType)
	}

	if raw, ok := workflow.TriggerConfig[models.TriggerFiltersKey]; ok {
		if _, isMap := raw.(map[string]any); !isMap {
			report("trigger_config.%s must be an object", models.TriggerFiltersKey)
		}
	}

	nodes := make(map[string]*models.WorkflowNode, len(workflow.Nodes))
	triggers := 0

	for _, node := range workflow.Nodes {
		if node == nil {
			report("nil node")

			continue
		}

		if _, dup := nodes[node.ID]; dup {
			report("duplicate node id %q", node.ID)
		}

		nodes[node.ID] = node

		if node.Kind == models.NodeKindTrigger {
			triggers++
		}

		g.validateNode(node, report)
	}

	if triggers != 1 {
		report("workflow must have exactly one trigger node, found %d", triggers)
	}

	for _, conn := range workflow.Connections {
		if conn == nil {
			report("nil connection")

			continue
		}

		source, ok := nodes[conn.SourceNodeID]
		if !ok {
			report("connection %s: unknown source node %q", conn.ID, conn.SourceNodeID)

			continue
		}

		target, ok := nodes[conn.TargetNodeID]
		if !ok {
			report("connection %s: unknown target node %q", conn.ID, conn.TargetNodeID)

			continue
		}

		if target.Kind == models.NodeKindTrigger {
			report("connection %s: trigger node %q cannot have incoming connections", conn.ID, target.ID)
		}

		switch {
		case source.Kind == models.NodeKindCondition && conn.Type == "":
			report("connection %s: connections leaving condition %q must be labelled true or false", conn.ID, source.ID)
		case source.Kind != models.NodeKindCondition && conn.Type != "":
			report("connection %s: only condition nodes have labelled connections", conn.ID)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

func (g *GraphValidator) validateNode(node *models.WorkflowNode, report func(string, ...any)) {
	if node.Spec == nil {
		if node.Kind != models.NodeKindTrigger {
			report("node %q: missing %s configuration", node.ID, node.Kind)
		}

		return
	}

	if node.Spec.Kind() != node.Kind {
		report("node %q: %s configuration on a %s node", node.ID, node.Spec.Kind(), node.Kind)

		return
	}

	switch spec := node.Spec.(type) {
	case models.ConditionSpec:
		if spec.LogicOperator != "" && !spec.LogicOperator.IsValid() {
			report("node %q: unknown logic operator %q", node.ID, spec.LogicOperator)
		}

		for _, cond := range spec.Conditions {
			validateCondition(node.ID, cond, report)
		}

		if spec.Expression != "" && g.expressions != nil {
			err := g.expressions.ValidateExpression(spec.Expression)
			if err != nil {
				report("node %q: invalid expression: %v", node.ID, err)
			}
		}

	case models.ActionSpec:
		if g.params == nil {
			return
		}

		err := g.params.ValidateParams(spec.ActionType, spec.Params)
		if err != nil {
			report("node %q: %v", node.ID, err)
		}

	case models.DelaySpec:
		_, err := spec.ToDuration()
		if err != nil {
			report("node %q: %v", node.ID, err)
		}
	}
}

func validateCondition(nodeID string, cond models.Condition, report func(string, ...any)) {
	if cond.IsGroup() {
		if cond.LogicOperator != "" && !cond.LogicOperator.IsValid() {
			report("node %q: unknown logic operator %q", nodeID, cond.LogicOperator)
		}

		for _, sub := range cond.Conditions {
			validateCondition(nodeID, sub, report)
		}

		return
	}

	if cond.Field == "" && cond.Operator == "" {
		report("node %q: condition without field or operator", nodeID)

		return
	}

	if cond.Field == "" {
		report("node %q: condition without field", nodeID)
	}

	if !conditions.Supported(cond.Operator) {
		report("node %q: unsupported operator %q", nodeID, cond.Operator)
	}
}
