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

// ExecutionRepository is the file-backed execution ledger. Guarded status
// transitions are serialized by a mutex, so they hold within one process only.
type ExecutionRepository struct {
	dir string
	mu  sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

// Create stores a new execution record.
func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if execution.UpdatedAt.IsZero() {
		execution.UpdatedAt = time.Now().UTC()
	}

	execution.Version = 1

	err := writeJSON(er.dir, execution.ID, execution)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// Update overwrites an existing execution record.
func (er *ExecutionRepository) Update(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	current, err := er.get(execution.ID)
	if err != nil {
		return err
	}

	execution.UpdatedAt = time.Now().UTC()
	execution.Version = current.Version + 1

	err = writeJSON(er.dir, execution.ID, execution)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	return er.get(id)
}

func (er *ExecutionRepository) get(id string) (*models.Execution, error) {
	var execution models.Execution

	found, err := readJSON(er.dir, id, &execution)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (er *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	executions, err := er.filter(func(e *models.Execution) bool { return e.WorkflowID == workflowID })
	if err != nil {
		return nil, err
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// TransitionStatus moves an execution from one status to another if it is
// currently in from at the given version.
func (er *ExecutionRepository) TransitionStatus(_ context.Context, id string, from, to models.ExecutionStatus, version int64) error {
	if err := validateID(id); err != nil {
		return persistence.NewExecutionError("TransitionStatus", id, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.get(id)
	if err != nil {
		return err
	}

	if execution.Status != from || execution.Version != version {
		return persistence.NewExecutionError("TransitionStatus", id,
			fmt.Errorf("%w: expected %s at version %d, found %s at version %d",
				persistence.ErrStatusConflict, from, version, execution.Status, execution.Version))
	}

	execution.Status = to
	execution.UpdatedAt = time.Now().UTC()
	execution.Version++

	err = writeJSON(er.dir, id, execution)
	if err != nil {
		return persistence.NewExecutionError("TransitionStatus", id, err)
	}

	return nil
}

// ListDue returns paused executions whose delay checkpoint is due at now.
func (er *ExecutionRepository) ListDue(_ context.Context, now time.Time) ([]*models.Execution, error) {
	executions, err := er.filter(func(e *models.Execution) bool {
		return e.Status == models.ExecutionStatusPaused && e.Checkpoint.IsDue(now)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return resumeAt(executions[i]).Before(resumeAt(executions[j]))
	})

	return executions, nil
}

// DeleteByWorkflow removes every execution of a workflow.
func (er *ExecutionRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	executions, err := er.filter(func(e *models.Execution) bool { return e.WorkflowID == workflowID })
	if err != nil {
		return err
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	for _, execution := range executions {
		err := os.Remove(filepath.Join(er.dir, execution.ID+".json"))
		if err != nil && !os.IsNotExist(err) {
			return persistence.NewExecutionError("DeleteByWorkflow", execution.ID, err)
		}
	}

	return nil
}

func (er *ExecutionRepository) filter(keep func(*models.Execution) bool) ([]*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	ids, err := listIDs(er.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := er.get(id)
		if err != nil {
			// Skip invalid files
			continue
		}

		if keep(execution) {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

func resumeAt(e *models.Execution) time.Time {
	if e.Checkpoint == nil || e.Checkpoint.ResumeAt == nil {
		return time.Time{}
	}

	return *e.Checkpoint.ResumeAt
}
