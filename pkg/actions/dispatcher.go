// Package actions maps action types to side-effecting handlers and runs them
// against an execution context.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/template"
)

var (
	// ErrUnknownActionType is reported for action types without a handler.
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrChannelNotConfigured is reported when the user has no channel for the action.
	ErrChannelNotConfigured = errors.New("channel not configured")
	// ErrMissingParam is reported when a required parameter is empty after templating.
	ErrMissingParam = errors.New("missing required parameter")
)

// Outcome is the result of one action. A provider failure is an Outcome with
// Success false; it is not a Go error.
type Outcome struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Bindings map[string]any `json:"bindings,omitempty"`
}

// Failed builds an unsuccessful outcome.
func Failed(err error) Outcome {
	return Outcome{Success: false, Error: err.Error()}
}

// Succeeded builds a successful outcome with optional bindings.
func Succeeded(bindings map[string]any) Outcome {
	return Outcome{Success: true, Bindings: bindings}
}

// Handler performs one action type. Params arrive already templated.
// A returned error means the data store failed and the run must stop.
type Handler interface {
	Type() models.ActionType
	Schema() map[string]any
	Execute(ctx context.Context, params map[string]any, ec *models.ExecutionContext) (Outcome, error)
}

// Dispatcher routes action specs to their handlers.
type Dispatcher struct {
	logger   *slog.Logger
	handlers map[models.ActionType]Handler
}

// NewDispatcher creates a dispatcher with the given handlers.
func NewDispatcher(logger *slog.Logger, handlers ...Handler) *Dispatcher {
	d := &Dispatcher{
		logger:   logger.With("module", "action_dispatcher"),
		handlers: make(map[models.ActionType]Handler, len(handlers)),
	}

	for _, h := range handlers {
		d.Register(h)
	}

	return d
}

// Register adds or replaces the handler for its action type.
func (d *Dispatcher) Register(h Handler) {
	d.handlers[h.Type()] = h
}

// Types lists the registered action types, sorted.
func (d *Dispatcher) Types() []models.ActionType {
	types := make([]models.ActionType, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Dispatch renders the action parameters against ec and runs the handler.
// A panic inside a handler is reported as a failed outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, spec models.ActionSpec, ec *models.ExecutionContext) (outcome Outcome, err error) {
	logger := d.logger.With(
		"execution_id", ec.ExecutionID,
		"workflow_id", ec.WorkflowID,
		"action_type", spec.ActionType,
	)

	handler, ok := d.handlers[spec.ActionType]
	if !ok {
		logger.WarnContext(ctx, "No handler for action type")

		return Failed(fmt.Errorf("%w: %s", ErrUnknownActionType, spec.ActionType)), nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Action handler panicked", "panic", r)

			outcome, err = Failed(fmt.Errorf("action %s panicked: %v", spec.ActionType, r)), nil
		}
	}()

	params := template.RenderParams(spec.Params, ec.Scope())
	if params == nil {
		params = make(map[string]any)
	}

	outcome, err = handler.Execute(ctx, params, ec)
	if err != nil {
		logger.ErrorContext(ctx, "Action failed with a data store error", "error", err)

		return outcome, fmt.Errorf("action %s: %w", spec.ActionType, err)
	}

	if outcome.Success {
		logger.InfoContext(ctx, "Action succeeded", "bindings", len(outcome.Bindings))
	} else {
		logger.WarnContext(ctx, "Action failed", "error", outcome.Error)
	}

	return outcome, nil
}
