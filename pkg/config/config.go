// Package config loads engine tuning from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// File is the structure of the autoflow.yaml file. Zero values fall back to
// the engine defaults.
type File struct {
	Engine         Engine        `yaml:"engine"`
	ResumeSchedule string        `yaml:"resume_schedule"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"    validate:"gte=0"`
}

// Engine tunes the node graph executor.
type Engine struct {
	// ShortDelayThreshold is the longest delay waited inline; negative
	// suspends on every delay.
	ShortDelayThreshold time.Duration `yaml:"short_delay_threshold"`
	MaxNodeVisits       int           `yaml:"max_node_visits"       validate:"gte=0"`
	FailOnActionError   bool          `yaml:"fail_on_action_error"`
}

// Load reads a configuration file. An empty path returns an empty File.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a configuration document. Unknown keys are
// rejected.
func Parse(data []byte) (*File, error) {
	var file File

	err := yaml.UnmarshalWithOptions(data, &file, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	err = validator.New(validator.WithRequiredStructEnabled()).Struct(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &file, nil
}
