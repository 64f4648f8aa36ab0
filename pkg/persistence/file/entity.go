package file

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

// EntityStore keeps generic entities under entities/<type>/<id>.json.
type EntityStore struct {
	dir string
	mu  sync.Mutex
}

// NewEntityStore creates a new file-backed entity store.
func NewEntityStore(root string) *EntityStore {
	return &EntityStore{dir: filepath.Join(root, "entities")}
}

// Create stores a new entity and returns its generated id.
func (es *EntityStore) Create(_ context.Context, entity string, fields map[string]any) (string, error) {
	if err := validateID(entity); err != nil {
		return "", fmt.Errorf("invalid entity type: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	record := maps.Clone(fields)
	if record == nil {
		record = make(map[string]any)
	}

	record["id"] = id
	record["created_at"] = now
	record["updated_at"] = now

	es.mu.Lock()
	defer es.mu.Unlock()

	err := writeJSON(filepath.Join(es.dir, entity), id, record)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", entity, err)
	}

	return id, nil
}

// Update merges fields into an existing entity.
func (es *EntityStore) Update(_ context.Context, entity, id string, fields map[string]any) error {
	if err := validateID(entity); err != nil {
		return fmt.Errorf("invalid entity type: %w", err)
	}

	if err := validateID(id); err != nil {
		return fmt.Errorf("invalid %s id: %w", entity, err)
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	dir := filepath.Join(es.dir, entity)

	var record map[string]any

	found, err := readJSON(dir, id, &record)
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", entity, id, err)
	}

	if !found {
		return fmt.Errorf("%s %s: %w", entity, id, persistence.ErrEntityNotFound)
	}

	maps.Copy(record, fields)
	record["id"] = id
	record["updated_at"] = time.Now().UTC()

	err = writeJSON(dir, id, record)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entity, id, err)
	}

	return nil
}

// Get returns an entity's fields.
func (es *EntityStore) Get(_ context.Context, entity, id string) (map[string]any, error) {
	if err := validateID(entity); err != nil {
		return nil, fmt.Errorf("invalid entity type: %w", err)
	}

	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("invalid %s id: %w", entity, err)
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	var record map[string]any

	found, err := readJSON(filepath.Join(es.dir, entity), id, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", entity, id, err)
	}

	if !found {
		return nil, fmt.Errorf("%s %s: %w", entity, id, persistence.ErrEntityNotFound)
	}

	return record, nil
}
