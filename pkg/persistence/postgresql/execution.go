package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// ExecutionRepository is the PostgreSQL execution ledger.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id, workflow_id, user_id, status, trigger_data, variables, checkpoint,
	error, started_at, completed_at, updated_at, version
`

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.UpdatedAt.IsZero() {
		execution.UpdatedAt = time.Now().UTC()
	}

	execution.Version = 1

	args, err := executionArgs(execution)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, workflow_id, user_id, status, trigger_data, variables, checkpoint,
			resume_at, error, started_at, completed_at, updated_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, append(args, execution.Version)...)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// Update overwrites an existing execution record.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	execution.UpdatedAt = time.Now().UTC()

	args, err := executionArgs(execution)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	err = r.db.QueryRowContext(ctx, `
		UPDATE executions SET
			workflow_id = $2,
			user_id = $3,
			status = $4,
			trigger_data = $5,
			variables = $6,
			checkpoint = $7,
			resume_at = $8,
			error = $9,
			started_at = $10,
			completed_at = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1
		RETURNING version
	`, args...).Scan(&execution.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// ListByWorkflow returns the executions of a workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return r.query(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`, workflowID)
}

// TransitionStatus moves an execution from one status to another only if it
// is currently in from at the given version.
func (r *ExecutionRepository) TransitionStatus(ctx context.Context, id string, from, to models.ExecutionStatus, version int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE executions SET status = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND status = $2 AND version = $5
	`, id, from, to, time.Now().UTC(), version)
	if err != nil {
		return persistence.NewExecutionError("TransitionStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 1 {
		return nil
	}

	// Tell a lost race apart from a missing record.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return persistence.NewExecutionError("TransitionStatus", id,
		fmt.Errorf("%w: expected %s at version %d", persistence.ErrStatusConflict, from, version))
}

// ListDue returns paused executions whose delay checkpoint is due at now.
func (r *ExecutionRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	return r.query(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		WHERE status = 'paused' AND resume_at IS NOT NULL AND resume_at <= $1
		ORDER BY resume_at
	`, now)
}

// DeleteByWorkflow removes every execution of a workflow.
func (r *ExecutionRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM executions WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete executions of workflow %s: %w", workflowID, err)
	}

	return nil
}

func (r *ExecutionRepository) query(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func executionArgs(execution *models.Execution) ([]any, error) {
	triggerDataJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	variablesJSON, err := json.Marshal(execution.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}

	var (
		checkpointJSON []byte
		resumeAt       *time.Time
	)

	if execution.Checkpoint != nil {
		checkpointJSON, err = json.Marshal(execution.Checkpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
		}

		if execution.Checkpoint.Reason == models.SuspendDelay {
			resumeAt = execution.Checkpoint.ResumeAt
		}
	}

	return []any{
		execution.ID,
		execution.WorkflowID,
		execution.UserID,
		execution.Status,
		triggerDataJSON,
		variablesJSON,
		checkpointJSON,
		resumeAt,
		execution.Error,
		execution.StartedAt,
		execution.CompletedAt,
		execution.UpdatedAt,
	}, nil
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		execution                                      models.Execution
		triggerDataJSON, variablesJSON, checkpointJSON []byte
		completedAt                                    sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.UserID,
		&execution.Status,
		&triggerDataJSON,
		&variablesJSON,
		&checkpointJSON,
		&execution.Error,
		&execution.StartedAt,
		&completedAt,
		&execution.UpdatedAt,
		&execution.Version,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	for _, field := range []struct {
		data   []byte
		target any
		name   string
	}{
		{triggerDataJSON, &execution.TriggerData, "trigger data"},
		{variablesJSON, &execution.Variables, "variables"},
		{checkpointJSON, &execution.Checkpoint, "checkpoint"},
	} {
		if len(field.data) == 0 {
			continue
		}

		err = json.Unmarshal(field.data, field.target)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", field.name, err)
		}
	}

	return &execution, nil
}
