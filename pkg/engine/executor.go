// Package engine executes workflow graphs: it walks nodes from the trigger,
// branches on conditions, dispatches actions, suspends on long delays and
// approvals, and records every run in the execution ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/delayqueue"
	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultShortDelayThreshold = 10 * time.Second
	DefaultMaxNodeVisits       = 1000
)

// ActionDispatcher runs action nodes.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, spec models.ActionSpec, ec *models.ExecutionContext) (actions.Outcome, error)
}

// Config holds the executor collaborators. Persistence, Dispatcher and Logger
// are required; everything else has a default.
type Config struct {
	Persistence persistence.Persistence
	Dispatcher  ActionDispatcher
	Logger      *slog.Logger

	Evaluator  *conditions.Evaluator
	Clock      clockwork.Clock
	DelayQueue delayqueue.Queue
	Publisher  eventbus.EventPublisher
	Tracer     trace.Tracer

	// ShortDelayThreshold is the longest delay waited inline. Longer delays
	// suspend the run. A negative value suspends on every delay.
	ShortDelayThreshold time.Duration
	MaxNodeVisits       int
	// FailOnActionError makes failed actions end the run unless the node
	// sets continue_on_error.
	FailOnActionError bool
}

// Executor runs workflow graphs. It is safe for concurrent use; each run owns
// its ExecutionContext.
type Executor struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	channels   persistence.ChannelConfigRepository
	dispatcher ActionDispatcher
	evaluator  *conditions.Evaluator
	clock      clockwork.Clock
	delays     delayqueue.Queue
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger

	shortDelayThreshold time.Duration
	maxNodeVisits       int
	failOnActionError   bool
}

func NewExecutor(cfg Config) *Executor {
	logger := cfg.Logger.With("module", "workflow_executor")

	e := &Executor{
		workflows:           cfg.Persistence.WorkflowRepository(),
		executions:          cfg.Persistence.ExecutionRepository(),
		channels:            cfg.Persistence.ChannelConfigRepository(),
		dispatcher:          cfg.Dispatcher,
		evaluator:           cfg.Evaluator,
		clock:               cfg.Clock,
		delays:              cfg.DelayQueue,
		publisher:           cfg.Publisher,
		tracer:              cfg.Tracer,
		logger:              logger,
		shortDelayThreshold: cfg.ShortDelayThreshold,
		maxNodeVisits:       cfg.MaxNodeVisits,
		failOnActionError:   cfg.FailOnActionError,
	}

	if e.evaluator == nil {
		e.evaluator = conditions.NewEvaluator(cfg.Logger)
	}

	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}

	if e.delays == nil {
		e.delays = delayqueue.NewLedgerQueue(e.executions)
	}

	if e.tracer == nil {
		e.tracer = otelhelper.NoopTracer()
	}

	if e.shortDelayThreshold == 0 {
		e.shortDelayThreshold = DefaultShortDelayThreshold
	}

	if e.maxNodeVisits <= 0 {
		e.maxNodeVisits = DefaultMaxNodeVisits
	}

	return e
}

// Result summarises a run for the caller. Success is false only when the run
// failed or never started; a paused run is successful so far.
type Result struct {
	Success     bool                   `json:"success"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	Status      models.ExecutionStatus `json:"status,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

func failedResult(executionID string, err error) *Result {
	return &Result{
		Success:     false,
		ExecutionID: executionID,
		Status:      models.ExecutionStatusFailed,
		Error:       err.Error(),
	}
}

// ExecuteWorkflow runs an active workflow against a trigger payload.
//
// A missing or inactive workflow is rejected before any execution record is
// written. Once the record exists every error is also stored on it, and the
// returned Result carries the execution id next to the error.
func (e *Executor) ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any, userID string) (*Result, error) {
	logger := e.logger.With("workflow_id", workflowID, "user_id", userID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer span.End()

	workflow, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		logger.WarnContext(ctx, "Workflow cannot be executed", "error", err)
		otelhelper.SetError(span, err)

		return &Result{Success: false, Error: err.Error()}, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.TriggerType)),
	)

	if !workflow.IsActive() {
		err := fmt.Errorf("%w: %s", ErrWorkflowNotActive, workflowID)
		logger.WarnContext(ctx, "Workflow is not active", "status", workflow.Status)
		otelhelper.SetError(span, err)

		return &Result{Success: false, Error: err.Error()}, err
	}

	channels, err := e.loadChannels(ctx, userID)
	if err != nil {
		otelhelper.SetError(span, err)

		return &Result{Success: false, Error: err.Error()}, err
	}

	now := e.clock.Now().UTC()
	execution := &models.Execution{
		ID:          uuid.Must(uuid.NewV7()).String(),
		WorkflowID:  workflow.ID,
		UserID:      userID,
		Status:      models.ExecutionStatusRunning,
		TriggerData: triggerData,
		StartedAt:   now,
		UpdatedAt:   now,
	}

	ec := models.NewExecutionContext(execution.ID, workflow.ID, userID, triggerData)
	ec.Channels = channels
	execution.TriggerData = ec.TriggerData
	execution.Variables = ec.Variables

	err = e.executions.Create(ctx, execution)
	if err != nil {
		err = fmt.Errorf("failed to create execution: %w", err)
		logger.ErrorContext(ctx, "Failed to record execution", "error", err)
		otelhelper.SetError(span, err)

		return &Result{Success: false, Error: err.Error()}, err
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))
	logger = logger.With("execution_id", execution.ID)
	logger.InfoContext(ctx, "Execution started", "trigger_type", workflow.TriggerType)

	e.publish(ctx, execution.ID, eventsStarted(execution))

	trigger := workflow.TriggerNode()
	if trigger == nil {
		err := fmt.Errorf("%w: %s", ErrMissingTrigger, workflow.ID)
		e.fail(ctx, execution, ec, "", err)
		otelhelper.SetError(span, err)

		return failedResult(execution.ID, err), err
	}

	result, err := e.run(ctx, workflow, execution, ec, []string{trigger.ID})
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func (e *Executor) loadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := e.workflows.GetByID(ctx, workflowID)
	if persistence.IsWorkflowNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	return workflow, nil
}

func (e *Executor) loadChannels(ctx context.Context, userID string) (*models.ChannelConfig, error) {
	if userID == "" {
		return nil, nil
	}

	channels, err := e.channels.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel configuration for %s: %w", userID, err)
	}

	return channels, nil
}

func isResumeConflict(err error) bool {
	return errors.Is(err, ErrExecutionNotPaused) || persistence.IsExecutionNotFound(err)
}
