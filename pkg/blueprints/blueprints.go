// Package blueprints ships ready-made automations and reads workflow
// definitions from YAML or JSON documents.
package blueprints

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/goccy/go-yaml"
)

//go:embed templates/*.yaml
var embedded embed.FS

var (
	ErrBlueprintNotFound  = errors.New("blueprint not found")
	ErrUnsupportedFormat  = errors.New("unsupported file extension")
	ErrDuplicateBlueprint = errors.New("duplicate blueprint id")
	ErrMissingBlueprintID = errors.New("blueprint id is required")
)

// Blueprint is a workflow definition without ownership or identity.
type Blueprint struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	TriggerType   models.TriggerType     `json:"trigger_type"`
	TriggerConfig map[string]any         `json:"trigger_config,omitempty"`
	Nodes         []*models.WorkflowNode `json:"nodes"`
	Connections   []*models.Connection   `json:"connections"`
}

// Summary describes a blueprint in listings.
type Summary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TriggerType models.TriggerType `json:"trigger_type"`
	Nodes       int                `json:"nodes"`
}

// Catalog is an immutable set of blueprints keyed by id.
type Catalog struct {
	raw     map[string][]byte
	summary []Summary
}

// Load returns the built-in catalog.
func Load() (*Catalog, error) {
	return LoadFS(embedded, "templates")
}

// LoadFS reads every .yaml, .yml and .json file in dir.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprints: %w", err)
	}

	c := &Catalog{raw: make(map[string][]byte)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		doc, err := toJSON(entry.Name(), data)
		if errors.Is(err, ErrUnsupportedFormat) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		bp, err := decode(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		if bp.ID == "" {
			return nil, fmt.Errorf("%s: %w", entry.Name(), ErrMissingBlueprintID)
		}

		if _, dup := c.raw[bp.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBlueprint, bp.ID)
		}

		c.raw[bp.ID] = doc
		c.summary = append(c.summary, Summary{
			ID:          bp.ID,
			Name:        bp.Name,
			Description: bp.Description,
			TriggerType: bp.TriggerType,
			Nodes:       len(bp.Nodes),
		})
	}

	slices.SortFunc(c.summary, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })

	return c, nil
}

// List returns the blueprints sorted by id.
func (c *Catalog) List() []Summary {
	return slices.Clone(c.summary)
}

// Get decodes a fresh copy of the blueprint.
func (c *Catalog) Get(id string) (*Blueprint, error) {
	doc, ok := c.raw[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlueprintNotFound, id)
	}

	return decode(doc)
}

// Instantiate builds an inactive workflow owned by owner from a blueprint.
// A non-empty name replaces the blueprint name.
func (c *Catalog) Instantiate(id, owner, name string) (*models.Workflow, error) {
	bp, err := c.Get(id)
	if err != nil {
		return nil, err
	}

	workflow := bp.Workflow(owner)
	if name != "" {
		workflow.Name = name
	}

	return workflow, nil
}

// Workflow converts the blueprint into an inactive workflow without id.
func (bp *Blueprint) Workflow(owner string) *models.Workflow {
	return &models.Workflow{
		Name:          bp.Name,
		Description:   bp.Description,
		TriggerType:   bp.TriggerType,
		TriggerConfig: bp.TriggerConfig,
		Status:        models.WorkflowStatusInactive,
		Owner:         owner,
		Nodes:         bp.Nodes,
		Connections:   bp.Connections,
	}
}

// ParseFile reads a blueprint from a YAML or JSON file, chosen by extension.
func ParseFile(name string) (*Blueprint, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	return Parse(filepath.Base(name), data)
}

// Parse decodes a blueprint document; name selects the format by extension.
func Parse(name string, data []byte) (*Blueprint, error) {
	doc, err := toJSON(name, data)
	if err != nil {
		return nil, err
	}

	return decode(doc)
}

func toJSON(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return data, nil
	case ".yml", ".yaml":
		var doc map[string]any

		err := yaml.UnmarshalWithOptions(data, &doc, yaml.Strict())
		if err != nil {
			return nil, err
		}

		return json.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func decode(doc []byte) (*Blueprint, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()

	var bp Blueprint

	err := dec.Decode(&bp)
	if err != nil {
		return nil, fmt.Errorf("invalid blueprint: %w", err)
	}

	return &bp, nil
}
