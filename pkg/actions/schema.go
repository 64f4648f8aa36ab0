package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidParams is returned when action parameters do not match the handler schema.
var ErrInvalidParams = errors.New("invalid action parameters")

// ValidateParams checks raw (untemplated) params against the handler schema.
func (d *Dispatcher) ValidateParams(actionType models.ActionType, params map[string]any) error {
	handler, ok := d.handlers[actionType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActionType, actionType)
	}

	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(handler.Schema()), gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("failed to validate %s params: %w", actionType, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}

	return fmt.Errorf("%w for %s: %s", ErrInvalidParams, actionType, strings.Join(details, "; "))
}

// Schemas returns the parameter schema of every registered handler.
func (d *Dispatcher) Schemas() map[models.ActionType]map[string]any {
	schemas := make(map[models.ActionType]map[string]any, len(d.handlers))
	for t, h := range d.handlers {
		schemas[t] = h.Schema()
	}

	return schemas
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
