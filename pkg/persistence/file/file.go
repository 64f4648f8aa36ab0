// Package file provides file-based persistence for workflows, executions,
// channel configuration and entities.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/autoflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	channelRepo   *ChannelConfigRepository
	entityStore   *EntityStore
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		channelRepo:   NewChannelConfigRepository(cleanRoot),
		entityStore:   NewEntityStore(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks that the root directory exists or can be created.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(fp.root, 0750); err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) ChannelConfigRepository() persistence.ChannelConfigRepository {
	return fp.channelRepo
}

func (fp *Persistence) EntityStore() persistence.EntityStore {
	return fp.entityStore
}

// validateID rejects ids that would escape their directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

// writeJSON writes v atomically: a temp file in the same directory is renamed over path.
func writeJSON(dir, name string, v any) error {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	err = os.Rename(tmp.Name(), filepath.Join(dir, name+".json"))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to store %s: %w", name, err)
	}

	return nil
}

// readJSON decodes dir/name.json into v. The boolean is false when the file does not exist.
func readJSON(dir, name string, v any) (bool, error) {
	filePath := filepath.Join(dir, name+".json")

	data, err := os.ReadFile(filePath) // #nosec G304 -- name is validated by callers
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return true, nil
}

// listIDs returns the names of the json documents stored in dir.
func listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return ids, nil
}
