package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// Bindings set when an approval is decided.
const (
	BindingApprovalStatus = "approval_status"
	BindingApprovedBy     = "approved_by"
	BindingRejectedBy     = "rejected_by"
	BindingRejectReason   = "reject_reason"
)

const resumeBatchSize = 100

// ErrNotDelayed is returned by Resume for executions paused on an approval.
var ErrNotDelayed = errors.New("execution is not waiting on a delay")

// Resume continues an execution whose delay has elapsed.
//
// Only one caller wins the paused to running transition; the others get
// ErrExecutionNotPaused. A nil Result means the run was not resumed.
func (e *Executor) Resume(ctx context.Context, executionID string) (*Result, error) {
	execution, err := e.pausedExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Checkpoint.Reason != models.SuspendDelay {
		return nil, fmt.Errorf("%w: %s", ErrNotDelayed, executionID)
	}

	if !execution.Checkpoint.IsDue(e.clock.Now()) {
		return nil, fmt.Errorf("%w: %s resumes at %s", ErrNotDue, executionID, execution.Checkpoint.ResumeAt)
	}

	return e.continueRun(ctx, execution, nil, "")
}

// Approve continues an execution paused on an approval node.
func (e *Executor) Approve(ctx context.Context, executionID, decidedBy string) (*Result, error) {
	execution, err := e.awaitingApproval(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return e.continueRun(ctx, execution, map[string]any{
		BindingApprovalStatus: "approved",
		BindingApprovedBy:     decidedBy,
	}, decidedBy)
}

// Reject ends an execution paused on an approval node. The run is recorded
// as failed with ErrApprovalRejected; successors are never visited.
func (e *Executor) Reject(ctx context.Context, executionID, decidedBy, reason string) (*Result, error) {
	execution, err := e.awaitingApproval(ctx, executionID)
	if err != nil {
		return nil, err
	}

	err = e.claim(ctx, execution, models.ExecutionStatusFailed)
	if err != nil {
		return nil, err
	}

	ec := restoreContext(execution)
	ec.Bind(map[string]any{
		BindingApprovalStatus: "rejected",
		BindingRejectedBy:     decidedBy,
		BindingRejectReason:   reason,
	})

	cause := fmt.Errorf("%w by %s", ErrApprovalRejected, decidedBy)
	if reason != "" {
		cause = fmt.Errorf("%w: %s", cause, reason)
	}

	e.fail(ctx, execution, ec, execution.Checkpoint.NodeID, cause)

	return failedResult(execution.ID, cause), nil
}

// ResumeDue resumes every execution whose delay has elapsed and returns how
// many runs were restarted. Entries of finished, missing or approval-paused
// executions are dropped; entries of busy runs are kept.
func (e *Executor) ResumeDue(ctx context.Context) (int, error) {
	ids, err := e.delays.Due(ctx, e.clock.Now(), resumeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due executions: %w", err)
	}

	resumed := 0

	for _, id := range ids {
		if ctx.Err() != nil {
			return resumed, ctx.Err()
		}

		result, err := e.Resume(ctx, id)

		switch {
		case result != nil:
			resumed++

			if err != nil {
				e.logger.WarnContext(ctx, "Resumed execution failed", "execution_id", id, "error", err)
			}
		case errors.Is(err, ErrExecutionBusy):
			e.logger.DebugContext(ctx, "Keeping delay entry of busy execution", "execution_id", id, "reason", err)
		case isResumeConflict(err) || errors.Is(err, ErrNotDelayed):
			e.logger.DebugContext(ctx, "Dropping stale delay entry", "execution_id", id, "reason", err)
			e.removeDelay(ctx, id)
		case errors.Is(err, ErrNotDue):
			// The index is ahead of the checkpoint; the next tick picks it up.
		default:
			e.logger.ErrorContext(ctx, "Failed to resume execution", "execution_id", id, "error", err)
		}
	}

	return resumed, nil
}

func (e *Executor) pausedExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status == models.ExecutionStatusRunning {
		return nil, fmt.Errorf("%w: %s is running", ErrExecutionBusy, executionID)
	}

	if execution.Status != models.ExecutionStatusPaused || execution.Checkpoint == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrExecutionNotPaused, executionID, execution.Status)
	}

	return execution, nil
}

func (e *Executor) awaitingApproval(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := e.pausedExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Checkpoint.Reason != models.SuspendApproval {
		return nil, fmt.Errorf("%w: %s", ErrNotAwaitingApproval, executionID)
	}

	return execution, nil
}

// claim moves a paused execution out of the version the caller read. A run
// that was resumed and paused again in between is a conflict.
func (e *Executor) claim(ctx context.Context, execution *models.Execution, to models.ExecutionStatus) error {
	err := e.executions.TransitionStatus(ctx, execution.ID, models.ExecutionStatusPaused, to, execution.Version)
	if persistence.IsStatusConflict(err) {
		return fmt.Errorf("%w: %s was resumed concurrently", ErrExecutionBusy, execution.ID)
	}

	if err != nil {
		return err
	}

	execution.Version++

	return nil
}

// continueRun claims a paused execution and walks the checkpoint's pending
// nodes with the restored context.
func (e *Executor) continueRun(ctx context.Context, execution *models.Execution, bindings map[string]any, decidedBy string) (*Result, error) {
	err := e.claim(ctx, execution, models.ExecutionStatusRunning)
	if err != nil {
		return nil, err
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.resume",
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	checkpoint := execution.Checkpoint
	execution.Status = models.ExecutionStatusRunning
	execution.Checkpoint = nil

	if checkpoint.Reason == models.SuspendDelay {
		e.removeDelay(ctx, execution.ID)
	}

	ec := restoreContext(execution)
	ec.Bind(bindings)

	e.logger.InfoContext(ctx, "Execution resumed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"node_id", checkpoint.NodeID,
		"reason", checkpoint.Reason)

	e.publish(ctx, execution.ID, events.ExecutionResumed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		DecidedBy:   decidedBy,
	})

	// A workflow deactivated while paused still finishes its started runs.
	workflow, err := e.loadWorkflow(ctx, execution.WorkflowID)
	if err == nil {
		ec.Channels, err = e.loadChannels(ctx, execution.UserID)
	}

	if err != nil {
		e.fail(ctx, execution, ec, checkpoint.NodeID, err)
		otelhelper.SetError(span, err)

		return failedResult(execution.ID, err), err
	}

	result, err := e.run(ctx, workflow, execution, ec, checkpoint.NextNodeIDs)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func restoreContext(execution *models.Execution) *models.ExecutionContext {
	ec := models.NewExecutionContext(execution.ID, execution.WorkflowID, execution.UserID, execution.TriggerData)
	if execution.Variables != nil {
		ec.Variables = maps.Clone(execution.Variables)
	}

	return ec
}

func (e *Executor) removeDelay(ctx context.Context, executionID string) {
	err := e.delays.Remove(ctx, executionID)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to remove delay entry", "execution_id", executionID, "error", err)
	}
}
