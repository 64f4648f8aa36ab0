package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

type Workflow struct {
	persistence persistence.Persistence
	validator   *GraphValidator
}

// NewWorkflow creates a new workflow service. A nil validator checks only
// the structure of the graph.
func NewWorkflow(persistence persistence.Persistence, validator *GraphValidator) *Workflow {
	if validator == nil {
		validator = NewGraphValidator(nil, nil, nil)
	}

	return &Workflow{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	OwnerID     string
	Status      *models.WorkflowStatus
	TriggerType models.TriggerType
}

// ListWorkflows retrieves workflows, oldest first.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) ([]*models.Workflow, error) {
	if err := validateListWorkflowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	workflows, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		Owner:       req.OwnerID,
		Status:      req.Status,
		TriggerType: req.TriggerType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func validateListWorkflowsRequest(req *ListWorkflowsRequest) error {
	if req.Status != nil && *req.Status != models.WorkflowStatusActive && *req.Status != models.WorkflowStatusInactive {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status),
			ErrInvalidStatus,
		)
	}

	if req.TriggerType != "" && !req.TriggerType.IsValid() {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_TRIGGER_TYPE",
			fmt.Sprintf("invalid trigger type '%s'", req.TriggerType),
			ErrInvalidRequest,
		)
	}

	req.OwnerID = strings.TrimSpace(req.OwnerID)

	return nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new workflow. New workflows are inactive
// unless a status is given.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusInactive
	}

	assignGraphIDs(workflow)

	err := w.validator.Validate(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces the definition of an existing workflow. Runs already
// started keep traversing the graph they loaded.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	assignGraphIDs(workflow)

	err = w.validator.Validate(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow. Its executions stay in the ledger unless
// purgeExecutions is set.
func (w *Workflow) Delete(ctx context.Context, workflowID string, purgeExecutions bool) error {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	if purgeExecutions {
		err = w.persistence.ExecutionRepository().DeleteByWorkflow(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("failed to delete executions of workflow %s: %w", workflowID, err)
		}
	}

	return nil
}

// Validate checks a definition without storing it.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	return w.validator.Validate(workflow)
}

// assignGraphIDs fills in missing connection ids.
func assignGraphIDs(workflow *models.Workflow) {
	for _, conn := range workflow.Connections {
		if conn != nil && conn.ID == "" {
			conn.ID = uuid.New().String()
		}
	}
}
