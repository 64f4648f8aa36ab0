package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , description
  , trigger_type
  , trigger_config
  , status
  , owner
  , created_at
  , updated_at
`

// GetByID returns a workflow with its nodes and connections.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := r.scanWorkflowBase(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	err = r.loadGraph(ctx, workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// ListWorkflows returns the workflows matching opts, oldest first.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) ([]*models.Workflow, error) {
	var (
		where []string
		args  []any
	)

	if opts.Owner != "" {
		args = append(args, opts.Owner)
		where = append(where, fmt.Sprintf("owner = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	if opts.TriggerType != "" {
		args = append(args, opts.TriggerType)
		where = append(where, fmt.Sprintf("trigger_type = $%d", len(args)))
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflowBase(rows)
		if err != nil {
			closeRows(ctx, r.logger, rows)

			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()

	closeRows(ctx, r.logger, rows)

	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err := r.loadGraph(ctx, workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph of workflow %s: %w", workflow.ID, err)
		}
	}

	return workflows, nil
}

// ListByTrigger returns active workflows for a trigger type, oldest first.
func (r *WorkflowRepository) ListByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	status := models.WorkflowStatusActive

	return r.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		Status:      &status,
		TriggerType: triggerType,
	})
}

// Save upserts a workflow and replaces its graph in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) (err error) {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	triggerConfigJSON, err := json.Marshal(workflow.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, trigger_type, trigger_config, status, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			status = EXCLUDED.status,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.TriggerType,
		triggerConfigJSON,
		workflow.Status,
		workflow.Owner,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	// Delete existing nodes and connections (for updates)
	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_connections WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing connections: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	err = r.saveNodes(ctx, tx, workflow)
	if err != nil {
		return fmt.Errorf("failed to save workflow nodes: %w", err)
	}

	err = r.saveConnections(ctx, tx, workflow)
	if err != nil {
		return fmt.Errorf("failed to save workflow connections: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a workflow; nodes and connections cascade.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) saveNodes(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	for ordinal, node := range workflow.Nodes {
		node.WorkflowID = workflow.ID

		config, err := models.EncodeNodeSpec(node.Spec)
		if err != nil {
			return fmt.Errorf("failed to marshal config of node %s: %w", node.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, id, ordinal, kind, name, config, position_x, position_y)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, workflow.ID, node.ID, ordinal, node.Kind, node.Name, config, node.PositionX, node.PositionY)
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) saveConnections(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	for ordinal, conn := range workflow.Connections {
		conn.WorkflowID = workflow.ID

		if conn.ID == "" {
			conn.ID = uuid.NewString()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_connections (workflow_id, id, ordinal, source_node_id, target_node_id, type)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, workflow.ID, conn.ID, ordinal, conn.SourceNodeID, conn.TargetNodeID, conn.Type)
		if err != nil {
			return fmt.Errorf("failed to insert connection %s: %w", conn.ID, err)
		}
	}

	return nil
}

// loadGraph fills nodes and connections, preserving the authored order.
func (r *WorkflowRepository) loadGraph(ctx context.Context, workflow *models.Workflow) error {
	nodeRows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, name, config, position_x, position_y
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY ordinal
	`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer closeRows(ctx, r.logger, nodeRows)

	workflow.Nodes = make([]*models.WorkflowNode, 0)

	for nodeRows.Next() {
		var (
			node   models.WorkflowNode
			config []byte
		)

		err := nodeRows.Scan(&node.ID, &node.Kind, &node.Name, &config, &node.PositionX, &node.PositionY)
		if err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}

		node.WorkflowID = workflow.ID

		node.Spec, err = models.DecodeNodeSpec(node.Kind, config)
		if err != nil {
			return fmt.Errorf("failed to decode node %s: %w", node.ID, err)
		}

		workflow.Nodes = append(workflow.Nodes, &node)
	}

	if err := nodeRows.Err(); err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}

	connRows, err := r.db.QueryContext(ctx, `
		SELECT id, source_node_id, target_node_id, type
		FROM workflow_connections
		WHERE workflow_id = $1
		ORDER BY ordinal
	`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow connections: %w", err)
	}

	defer closeRows(ctx, r.logger, connRows)

	workflow.Connections = make([]*models.Connection, 0)

	for connRows.Next() {
		conn := models.Connection{WorkflowID: workflow.ID}

		err := connRows.Scan(&conn.ID, &conn.SourceNodeID, &conn.TargetNodeID, &conn.Type)
		if err != nil {
			return fmt.Errorf("failed to scan connection: %w", err)
		}

		workflow.Connections = append(workflow.Connections, &conn)
	}

	if err := connRows.Err(); err != nil {
		return fmt.Errorf("error iterating connections: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) scanWorkflowBase(row scanner) (*models.Workflow, error) {
	var (
		workflow          models.Workflow
		triggerConfigJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.TriggerType,
		&triggerConfigJSON,
		&workflow.Status,
		&workflow.Owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(triggerConfigJSON) > 0 {
		err = json.Unmarshal(triggerConfigJSON, &workflow.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	return &workflow, nil
}
