package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations. A workflow and
// its graph live in one document, so deleting it removes nodes and connections.
type WorkflowRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	wr.mu.RLock()
	defer wr.mu.RUnlock()

	return wr.get(id)
}

func (wr *WorkflowRepository) get(id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := readJSON(wr.dir, id, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// ListWorkflows returns the workflows matching opts, oldest first.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	ids, err := listIDs(wr.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.get(id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if opts.Owner != "" && workflow.Owner != opts.Owner {
			continue
		}

		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		if opts.TriggerType != "" && workflow.TriggerType != opts.TriggerType {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if !workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

// ListByTrigger returns active workflows for a trigger type, oldest first.
func (wr *WorkflowRepository) ListByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	status := models.WorkflowStatusActive

	return wr.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		Status:      &status,
		TriggerType: triggerType,
	})
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := validateID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	for _, node := range workflow.Nodes {
		node.WorkflowID = workflow.ID
	}

	for _, conn := range workflow.Connections {
		conn.WorkflowID = workflow.ID
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := writeJSON(wr.dir, workflow.ID, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.Remove(filepath.Join(wr.dir, id+".json"))
	if os.IsNotExist(err) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
