package engine

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
)

// Ledger writes below use a context detached from cancellation so that a
// cancelled run is still recorded as failed.

func (e *Executor) complete(ctx context.Context, execution *models.Execution, ec *models.ExecutionContext) (*Result, error) {
	now := e.clock.Now().UTC()

	execution.Status = models.ExecutionStatusCompleted
	execution.Variables = ec.Variables
	execution.Checkpoint = nil
	execution.Error = ""
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	err := e.executions.Update(context.WithoutCancel(ctx), execution)
	if err != nil {
		err = fmt.Errorf("failed to record completion: %w", err)
		e.logger.ErrorContext(ctx, "Failed to record completed execution",
			"execution_id", execution.ID, "error", err)

		return failedResult(execution.ID, err), err
	}

	e.logger.InfoContext(ctx, "Execution completed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"duration", now.Sub(execution.StartedAt))

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Duration:    now.Sub(execution.StartedAt),
	})

	return &Result{Success: true, ExecutionID: execution.ID, Status: execution.Status}, nil
}

// fail records a traversal error. Side effects already performed stay.
func (e *Executor) fail(ctx context.Context, execution *models.Execution, ec *models.ExecutionContext, nodeID string, cause error) {
	now := e.clock.Now().UTC()

	execution.Status = models.ExecutionStatusFailed
	execution.Variables = ec.Variables
	execution.Checkpoint = nil
	execution.Error = cause.Error()
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	e.logger.ErrorContext(ctx, "Execution failed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"node_id", nodeID,
		"error", cause)

	err := e.executions.Update(context.WithoutCancel(ctx), execution)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record failed execution",
			"execution_id", execution.ID, "error", err)
	}

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Error:       cause.Error(),
		Duration:    now.Sub(execution.StartedAt),
	})
}

// suspend persists a checkpoint and pauses the run. Delay checkpoints are
// indexed in the delay queue before the pause is recorded, so a resumer never
// sees a paused execution it cannot find.
func (e *Executor) suspend(ctx context.Context, execution *models.Execution, ec *models.ExecutionContext, nodeID string, s *suspension, pending []string) (*Result, error) {
	now := e.clock.Now().UTC()

	checkpoint := &models.Checkpoint{
		Reason:      s.reason,
		NodeID:      nodeID,
		NextNodeIDs: pending,
	}

	if s.reason == models.SuspendDelay {
		resumeAt := now.Add(s.delay)
		checkpoint.ResumeAt = &resumeAt

		err := e.delays.Schedule(context.WithoutCancel(ctx), execution.ID, resumeAt)
		if err != nil {
			err = fmt.Errorf("node %s: failed to schedule resume: %w", nodeID, err)
			e.fail(ctx, execution, ec, nodeID, err)

			return failedResult(execution.ID, err), err
		}
	}

	execution.Status = models.ExecutionStatusPaused
	execution.Variables = ec.Variables
	execution.Checkpoint = checkpoint
	execution.UpdatedAt = now

	err := e.executions.Update(context.WithoutCancel(ctx), execution)
	if err != nil {
		err = fmt.Errorf("failed to record checkpoint: %w", err)
		e.logger.ErrorContext(ctx, "Failed to record paused execution",
			"execution_id", execution.ID, "error", err)

		return failedResult(execution.ID, err), err
	}

	e.logger.InfoContext(ctx, "Execution paused",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"node_id", nodeID,
		"reason", s.reason,
		"pending", len(pending))

	e.publish(ctx, execution.ID, events.ExecutionPaused{
		BaseEvent:   events.NewBaseEvent(events.ExecutionPausedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Reason:      s.reason,
		ResumeAt:    checkpoint.ResumeAt,
	})

	return &Result{Success: true, ExecutionID: execution.ID, Status: execution.Status}, nil
}

func eventsStarted(execution *models.Execution) events.ExecutionStarted {
	return events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		UserID:      execution.UserID,
		TriggerData: execution.TriggerData,
	}
}

// publish emits a lifecycle event. Publishing is best effort: a bus failure
// never changes the outcome of a run.
func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(context.WithoutCancel(ctx), key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
