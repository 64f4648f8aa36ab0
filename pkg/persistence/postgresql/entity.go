package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

// EntityStore keeps generic entities in one JSONB table keyed by (entity, id).
type EntityStore struct {
	db *sql.DB
}

// NewEntityStore creates a new PostgreSQL entity store.
func NewEntityStore(db *sql.DB) *EntityStore {
	return &EntityStore{db: db}
}

// Create stores a new entity and returns its generated id.
func (s *EntityStore) Create(ctx context.Context, entity string, fields map[string]any) (string, error) {
	id := uuid.NewString()

	if fields == nil {
		fields = map[string]any{}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s fields: %w", entity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (entity, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
	`, entity, id, data)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", entity, err)
	}

	return id, nil
}

// Update merges fields into an existing entity.
func (s *EntityStore) Update(ctx context.Context, entity, id string, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal %s fields: %w", entity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE entities SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE entity = $1 AND id = $2
	`, entity, id, data)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entity, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, persistence.ErrEntityNotFound)
	}

	return nil
}

// Get returns an entity's fields.
func (s *EntityStore) Get(ctx context.Context, entity, id string) (map[string]any, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx, `SELECT fields FROM entities WHERE entity = $1 AND id = $2`, entity, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", entity, id, persistence.ErrEntityNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", entity, id, err)
	}

	fields := make(map[string]any)

	err = json.Unmarshal(data, &fields)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", entity, id, err)
	}

	fields["id"] = id

	return fields, nil
}
