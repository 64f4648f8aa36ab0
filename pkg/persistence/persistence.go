// Package persistence provides the storage abstraction for workflows, the
// execution ledger, channel configuration and the generic entity store.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

// Persistence aggregates every repository an engine deployment needs.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ChannelConfigRepository() ChannelConfigRepository
	EntityStore() EntityStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions with their nodes and connections.
type WorkflowRepository interface {
	// GetByID returns the workflow with its full graph, or ErrWorkflowNotFound.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) ([]*models.Workflow, error)
	// ListByTrigger returns active workflows for a trigger type, oldest first.
	ListByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow, its nodes and connections.
	Delete(ctx context.Context, id string) error
}

// ListWorkflowsOptions filters a workflow listing.
type ListWorkflowsOptions struct {
	Owner       string
	Status      *models.WorkflowStatus
	TriggerType models.TriggerType
}

// ExecutionRepository is the execution ledger.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	Update(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	// ListByWorkflow returns executions newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
	// Create stores the record at version 1. Update bumps the stored version
	// and writes it back to execution.Version.
	//
	// TransitionStatus moves the execution from one status to another only
	// if it is currently in from at the given version. It returns
	// ErrStatusConflict otherwise.
	TransitionStatus(ctx context.Context, id string, from, to models.ExecutionStatus, version int64) error
	// ListDue returns paused executions whose delay checkpoint is due at now.
	ListDue(ctx context.Context, now time.Time) ([]*models.Execution, error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// ChannelConfigRepository stores per-user notification channels.
type ChannelConfigRepository interface {
	// GetByUser returns nil without error when the user has no configuration.
	GetByUser(ctx context.Context, userID string) (*models.ChannelConfig, error)
	Save(ctx context.Context, config *models.ChannelConfig) error
}

// EntityStore is the generic store backing data-mutating actions.
type EntityStore interface {
	// Create stores a new entity and returns its id.
	Create(ctx context.Context, entity string, fields map[string]any) (string, error)
	// Update merges fields into an existing entity. It returns ErrEntityNotFound
	// when the entity does not exist.
	Update(ctx context.Context, entity, id string, fields map[string]any) error
	Get(ctx context.Context, entity, id string) (map[string]any, error)
}
