// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/dukex/autoflow/pkg/models"

// WorkflowRequest is the body of workflow create and replace calls.
type WorkflowRequest struct {
	Name          string                 `json:"name"                     validate:"required,min=3"`
	Description   string                 `json:"description"`
	TriggerType   models.TriggerType     `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any         `json:"trigger_config,omitempty"`
	Status        models.WorkflowStatus  `json:"status,omitempty"         validate:"omitempty,oneof=active inactive"`
	Owner         string                 `json:"owner"                    validate:"required"`
	Nodes         []*models.WorkflowNode `json:"nodes"`
	Connections   []*models.Connection   `json:"connections"`
}

// Workflow converts the request into a workflow without id.
func (r WorkflowRequest) Workflow() *models.Workflow {
	nodes := r.Nodes
	if nodes == nil {
		nodes = []*models.WorkflowNode{}
	}

	connections := r.Connections
	if connections == nil {
		connections = []*models.Connection{}
	}

	return &models.Workflow{
		Name:          r.Name,
		Description:   r.Description,
		TriggerType:   r.TriggerType,
		TriggerConfig: r.TriggerConfig,
		Status:        r.Status,
		Owner:         r.Owner,
		Nodes:         nodes,
		Connections:   connections,
	}
}

// ExecuteWorkflowRequest starts a manual run.
type ExecuteWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data"`
	UserID      string         `json:"user_id"`
}

// EmitEventRequest announces a domain event.
type EmitEventRequest struct {
	EventType  models.TriggerType `json:"event_type"  validate:"required"`
	EntityData map[string]any     `json:"entity_data"`
	UserID     string             `json:"user_id"`
}

// EmitEventResponse acknowledges an accepted event.
type EmitEventResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// ApprovalDecisionRequest approves or rejects a paused execution.
type ApprovalDecisionRequest struct {
	DecidedBy string `json:"decided_by" validate:"required"`
	Reason    string `json:"reason"`
}

// InstantiateTemplateRequest creates a workflow from a blueprint.
type InstantiateTemplateRequest struct {
	Owner string `json:"owner" validate:"required"`
	Name  string `json:"name"  validate:"omitempty,min=3"`
}
