// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

// TriggerNode creates a trigger node.
func TriggerNode(id string) *models.WorkflowNode {
	return &models.WorkflowNode{ID: id, Kind: models.NodeKindTrigger, Name: "Trigger", Spec: models.TriggerSpec{}}
}

// ConditionNode creates a condition node from a flat AND list.
func ConditionNode(id string, conditions ...models.Condition) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindCondition,
		Name: "Condition " + id,
		Spec: models.ConditionSpec{Conditions: conditions, LogicOperator: models.LogicAnd},
	}
}

// ActionNode creates an action node.
func ActionNode(id string, actionType models.ActionType, params map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindAction,
		Name: "Action " + id,
		Spec: models.ActionSpec{ActionType: actionType, Params: params},
	}
}

// DelayNode creates a delay node.
func DelayNode(id string, duration float64, unit models.DelayUnit) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindDelay,
		Name: "Delay " + id,
		Spec: models.DelaySpec{Duration: duration, Unit: unit},
	}
}

// ApprovalNode creates an approval node.
func ApprovalNode(id string, approvers ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindApproval,
		Name: "Approval " + id,
		Spec: models.ApprovalSpec{Approvers: approvers, Message: "Please approve"},
	}
}

// Edge creates an unlabelled connection.
func Edge(source, target string) *models.Connection {
	return &models.Connection{ID: source + "->" + target, SourceNodeID: source, TargetNodeID: target}
}

// TrueEdge creates a connection taken when a condition holds.
func TrueEdge(source, target string) *models.Connection {
	return &models.Connection{
		ID:           source + "-true->" + target,
		SourceNodeID: source,
		TargetNodeID: target,
		Type:         models.ConnectionTrue,
	}
}

// FalseEdge creates a connection taken when a condition does not hold.
func FalseEdge(source, target string) *models.Connection {
	return &models.Connection{
		ID:           source + "-false->" + target,
		SourceNodeID: source,
		TargetNodeID: target,
		Type:         models.ConnectionFalse,
	}
}

// CreateTestWorkflow creates an active workflow with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "Workflow used in tests",
		TriggerType: models.TriggerInvoiceOverdue,
		Status:      models.WorkflowStatusActive,
		Owner:       "user-1",
		Nodes:       []*models.WorkflowNode{TriggerNode("trigger")},
		CreatedAt:   time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes appends nodes after the default trigger node.
func WithNodes(nodes ...*models.WorkflowNode) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, nodes...)
	}
}

// WithConnections sets the workflow connections.
func WithConnections(connections ...*models.Connection) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Connections = connections
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithTrigger sets the workflow trigger type.
func WithTrigger(triggerType models.TriggerType) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerType = triggerType
	}
}

// WithoutTriggerNode removes the default trigger node.
func WithoutTriggerNode() func(*models.Workflow) {
	return func(w *models.Workflow) {
		nodes := w.Nodes[:0]

		for _, node := range w.Nodes {
			if node.Kind != models.NodeKindTrigger {
				nodes = append(nodes, node)
			}
		}

		w.Nodes = nodes
	}
}

// OverdueEscalationWorkflow is the invoice overdue branching scenario: more
// than seven days overdue sends an email, otherwise a WhatsApp message.
func OverdueEscalationWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	base := []func(*models.Workflow){
		WithNodes(
			ConditionNode("check", models.Condition{Field: "daysOverdue", Operator: "greater_than", Value: 7}),
			ActionNode("email", models.ActionSendEmail, map[string]any{
				"to":      "{{clientEmail}}",
				"subject": "Invoice {{invoiceId}} overdue",
				"body":    "Hello {{clientName}}, your invoice is {{daysOverdue}} days overdue.",
			}),
			ActionNode("whatsapp", models.ActionSendWhatsApp, map[string]any{
				"phone":   "{{clientPhone}}",
				"message": "Hi {{clientName}}, friendly reminder about invoice {{invoiceId}}.",
			}),
		),
		WithConnections(
			Edge("trigger", "check"),
			TrueEdge("check", "email"),
			FalseEdge("check", "whatsapp"),
		),
	}

	return CreateTestWorkflow(append(base, overrides...)...)
}
