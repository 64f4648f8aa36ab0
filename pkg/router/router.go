// Package router fans domain events out to the active workflows listening
// for them.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/dukex/autoflow/pkg/engine"
	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/values"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrWorkflowPanicked is reported for a workflow whose run panicked.
var ErrWorkflowPanicked = errors.New("workflow run panicked")

// WorkflowRunner starts one workflow run.
type WorkflowRunner interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any, userID string) (*engine.Result, error)
}

// Outcome is what happened to one matched workflow.
type Outcome struct {
	WorkflowID string
	Result     *engine.Result
	Err        error
}

type Router struct {
	workflows persistence.WorkflowRepository
	runner    WorkflowRunner
	tracer    trace.Tracer
	logger    *slog.Logger
	inflight  sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithTracer records a span per dispatched event.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Router) {
		r.tracer = tracer
	}
}

func New(logger *slog.Logger, workflows persistence.WorkflowRepository, runner WorkflowRunner, opts ...Option) *Router {
	r := &Router{
		workflows: workflows,
		runner:    runner,
		tracer:    otelhelper.NoopTracer(),
		logger:    logger.With("module", "event_router"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// TriggerWorkflowEvent runs the matching workflows in the background and
// returns immediately. Failures are logged, never returned to the caller.
func (r *Router) TriggerWorkflowEvent(eventType models.TriggerType, entityData map[string]any, userID string) {
	event := events.NewDomainEvent(eventType, entityData, userID)

	r.inflight.Add(1)

	go func() {
		defer r.inflight.Done()

		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Event dispatch panicked", "event_id", event.ID, "panic", rec)
			}
		}()

		r.Dispatch(context.Background(), event)
	}()
}

// HandleDomainEvent dispatches an event received from the event bus.
func (r *Router) HandleDomainEvent(ctx context.Context, event events.DomainEvent) {
	r.Dispatch(ctx, event)
}

// Wait blocks until every event passed to TriggerWorkflowEvent is handled.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// Dispatch runs every active workflow whose trigger type and filters match
// the event, each in its own goroutine, and waits for all of them. The
// outcomes follow the workflow order: oldest first. No match is a no-op.
func (r *Router) Dispatch(ctx context.Context, event events.DomainEvent) []Outcome {
	logger := r.logger.With("event_id", event.ID, "trigger_type", event.TriggerType, "user_id", event.UserID)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "event.dispatch",
		attribute.String(otelhelper.EventIDKey, event.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(event.TriggerType)),
		attribute.String(otelhelper.UserIDKey, event.UserID),
	)
	defer span.End()

	candidates, err := r.workflows.ListByTrigger(ctx, event.TriggerType)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list workflows for event", "error", err)
		otelhelper.SetError(span, err)

		return nil
	}

	matched := make([]*models.Workflow, 0, len(candidates))

	for _, workflow := range candidates {
		if matchesFilters(workflow.TriggerFilters(), event.EntityData) {
			matched = append(matched, workflow)
		}
	}

	if len(matched) == 0 {
		logger.DebugContext(ctx, "No workflow matches event")

		return nil
	}

	logger.InfoContext(ctx, "Dispatching event", "workflows", len(matched))
	span.SetAttributes(attribute.Int(otelhelper.MatchedWorkflowsKey, len(matched)))

	outcomes := make([]Outcome, len(matched))

	var wg sync.WaitGroup

	for i, workflow := range matched {
		wg.Add(1)

		go func() {
			defer wg.Done()

			outcomes[i] = r.run(ctx, workflow, event)
		}()
	}

	wg.Wait()

	return outcomes
}

func (r *Router) run(ctx context.Context, workflow *models.Workflow, event events.DomainEvent) (outcome Outcome) {
	outcome.WorkflowID = workflow.ID

	logger := r.logger.With("event_id", event.ID, "workflow_id", workflow.ID)

	defer func() {
		if rec := recover(); rec != nil {
			outcome.Err = fmt.Errorf("%w: %v", ErrWorkflowPanicked, rec)
			logger.ErrorContext(ctx, "Workflow run panicked", "panic", rec)
		}
	}()

	// Events without an acting user run with the owner's channels.
	userID := event.UserID
	if userID == "" {
		userID = workflow.Owner
	}

	outcome.Result, outcome.Err = r.runner.ExecuteWorkflow(ctx, workflow.ID, maps.Clone(event.EntityData), userID)
	if outcome.Err != nil {
		logger.WarnContext(ctx, "Workflow run failed", "error", outcome.Err)
	}

	return outcome
}

// matchesFilters reports whether every filter key resolves in data to a
// loosely equal value. Keys may be dotted paths.
func matchesFilters(filters, data map[string]any) bool {
	scope := models.Scope{TriggerData: data}

	for key, want := range filters {
		got, ok := scope.Resolve(key)
		if !ok || !values.LooseEqual(got, want) {
			return false
		}
	}

	return true
}
