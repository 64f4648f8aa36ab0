package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

// Activate makes a workflow receive events. The definition is validated
// again since it may predate the registered action handlers.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setStatus(ctx, workflowID, models.WorkflowStatusActive)
}

// Deactivate stops new runs. Paused runs of the workflow still finish.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setStatus(ctx, workflowID, models.WorkflowStatusInactive)
}

func (w *Workflow) setStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == status {
		if status == models.WorkflowStatusActive {
			return nil, ErrAlreadyActive
		}

		return nil, ErrAlreadyInactive
	}

	if status == models.WorkflowStatusActive {
		err = w.validator.Validate(workflow)
		if err != nil {
			return nil, fmt.Errorf("workflow validation failed: %w", err)
		}
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to change workflow status: %w", err)
	}

	return workflow, nil
}
