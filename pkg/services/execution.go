package services

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// Executions is the read side of the execution ledger.
type Executions struct {
	persistence persistence.Persistence
}

func NewExecutions(persistence persistence.Persistence) *Executions {
	return &Executions{persistence: persistence}
}

// ListByWorkflow returns the runs of an existing workflow, newest first.
func (e *Executions) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	_, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return e.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
}

func (e *Executions) FetchByID(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.persistence.ExecutionRepository().GetByID(ctx, executionID)
}
