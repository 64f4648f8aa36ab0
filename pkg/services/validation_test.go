package services

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paramsFunc func(models.ActionType, map[string]any) error

func (f paramsFunc) ValidateParams(actionType models.ActionType, params map[string]any) error {
	return f(actionType, params)
}

func problemsOf(t *testing.T, err error) []string {
	t.Helper()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	return verr.Problems
}

func TestGraphValidator_ValidWorkflow(t *testing.T) {
	g := NewGraphValidator(nil, nil, conditions.NewEvaluator(slog.New(slog.NewTextHandler(io.Discard, nil))))

	require.NoError(t, g.Validate(testutil.OverdueEscalationWorkflow()))
}

func TestGraphValidator_Problems(t *testing.T) {
	tests := []struct {
		name     string
		workflow *models.Workflow
		want     string
	}{
		{
			name:     "missing trigger",
			workflow: testutil.CreateTestWorkflow(testutil.WithoutTriggerNode()),
			want:     "exactly one trigger node, found 0",
		},
		{
			name: "two triggers",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.TriggerNode("second"),
			)),
			want: "exactly one trigger node, found 2",
		},
		{
			name: "duplicate node id",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.DelayNode("wait", 1, models.DelayHours),
				testutil.DelayNode("wait", 2, models.DelayHours),
			)),
			want: `duplicate node id "wait"`,
		},
		{
			name:     "unknown target",
			workflow: testutil.CreateTestWorkflow(testutil.WithConnections(testutil.Edge("trigger", "ghost"))),
			want:     `unknown target node "ghost"`,
		},
		{
			name: "edge into trigger",
			workflow: testutil.CreateTestWorkflow(
				testutil.WithNodes(testutil.DelayNode("wait", 1, models.DelayHours)),
				testutil.WithConnections(testutil.Edge("wait", "trigger")),
			),
			want: "cannot have incoming connections",
		},
		{
			name: "unlabelled condition edge",
			workflow: testutil.CreateTestWorkflow(
				testutil.WithNodes(
					testutil.ConditionNode("check", models.Condition{Field: "amount", Operator: "equals", Value: 1}),
					testutil.DelayNode("wait", 1, models.DelayHours),
				),
				testutil.WithConnections(testutil.Edge("check", "wait")),
			),
			want: "must be labelled true or false",
		},
		{
			name: "labelled action edge",
			workflow: testutil.CreateTestWorkflow(
				testutil.WithNodes(testutil.DelayNode("wait", 1, models.DelayHours)),
				testutil.WithConnections(testutil.TrueEdge("trigger", "wait")),
			),
			want: "only condition nodes have labelled connections",
		},
		{
			name: "unsupported operator",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.ConditionNode("check", models.Condition{Field: "amount", Operator: "roughly"}),
			)),
			want: `unsupported operator "roughly"`,
		},
		{
			name: "leaf without field or operator",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.ConditionNode("check", models.Condition{Value: 7}),
			)),
			want: `node "check": condition without field or operator`,
		},
		{
			name: "unknown nested logic operator",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.ConditionNode("check", models.Condition{
					LogicOperator: "and",
					Conditions:    []models.Condition{{Field: "amount", Operator: "equals", Value: 1}},
				}),
			)),
			want: `node "check": unknown logic operator "and"`,
		},
		{
			name: "bad delay unit",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				testutil.DelayNode("wait", 1, "fortnights"),
			)),
			want: `unknown unit "fortnights"`,
		},
		{
			name:     "unknown trigger type",
			workflow: testutil.CreateTestWorkflow(testutil.WithTrigger("order_shipped")),
			want:     `unknown trigger type "order_shipped"`,
		},
		{
			name:     "missing name",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) { w.Name = "" }),
			want:     "Workflow.Name",
		},
		{
			name: "filters not an object",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.TriggerConfig = map[string]any{models.TriggerFiltersKey: "vip"}
			}),
			want: "must be an object",
		},
		{
			name: "missing node configuration",
			workflow: testutil.CreateTestWorkflow(testutil.WithNodes(
				&models.WorkflowNode{ID: "act", Kind: models.NodeKindAction},
			)),
			want: `node "act": missing action configuration`,
		},
	}

	g := NewGraphValidator(nil, nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Validate(tt.workflow)
			require.ErrorIs(t, err, ErrInvalidWorkflow)

			problems := problemsOf(t, err)
			assert.True(t, containsSubstring(problems, tt.want), "problems %v do not mention %q", problems, tt.want)
		})
	}
}

func TestGraphValidator_ActionParamsAndExpressions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var checked []models.ActionType

	params := paramsFunc(func(actionType models.ActionType, _ map[string]any) error {
		checked = append(checked, actionType)
		if actionType == models.ActionWebhook {
			return errors.New("url is required")
		}

		return nil
	})

	g := NewGraphValidator(nil, params, conditions.NewEvaluator(logger))

	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(
		testutil.ActionNode("mail", models.ActionSendEmail, map[string]any{"to": "a@b.c"}),
		testutil.ActionNode("hook", models.ActionWebhook, nil),
		&models.WorkflowNode{
			ID:   "expr",
			Kind: models.NodeKindCondition,
			Spec: models.ConditionSpec{Expression: "amount >"},
		},
	))

	problems := problemsOf(t, g.Validate(workflow))

	assert.Equal(t, []models.ActionType{models.ActionSendEmail, models.ActionWebhook}, checked)
	assert.True(t, containsSubstring(problems, `node "hook": url is required`))
	assert.True(t, containsSubstring(problems, `node "expr": invalid expression`))
}

func TestGraphValidator_Nil(t *testing.T) {
	require.ErrorIs(t, NewGraphValidator(nil, nil, nil).Validate(nil), ErrWorkflowNil)
}

func containsSubstring(items []string, sub string) bool {
	for _, item := range items {
		if strings.Contains(item, sub) {
			return true
		}
	}

	return false
}
