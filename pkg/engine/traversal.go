package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// step is what visiting one node decided: the successors to visit next, in
// edge-listing order, or a suspension.
type step struct {
	next    []string
	suspend *suspension
}

type suspension struct {
	reason models.SuspendReason
	delay  time.Duration
}

// run walks the graph depth-first from start using a LIFO work list. Pushing
// successors in reverse keeps the edge-listing order when popping.
func (e *Executor) run(ctx context.Context, workflow *models.Workflow, execution *models.Execution, ec *models.ExecutionContext, start []string) (*Result, error) {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	stack := pushReversed(nil, start)
	visits := 0

	for len(stack) > 0 {
		err := ctx.Err()
		if err != nil {
			err = fmt.Errorf("execution cancelled: %w", err)
			e.fail(ctx, execution, ec, "", err)

			return failedResult(execution.ID, err), err
		}

		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visits++
		if visits > e.maxNodeVisits {
			err := fmt.Errorf("%w: %d visits", ErrTraversalLimit, e.maxNodeVisits)
			e.fail(ctx, execution, ec, nodeID, err)

			return failedResult(execution.ID, err), err
		}

		node, ok := workflow.NodeByID(nodeID)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
			e.fail(ctx, execution, ec, nodeID, err)

			return failedResult(execution.ID, err), err
		}

		logger.DebugContext(ctx, "Visiting node", "node_id", node.ID, "kind", node.Kind)

		result, err := e.visitTraced(ctx, workflow, node, ec)
		if err != nil {
			err = fmt.Errorf("node %s: %w", node.ID, err)
			e.fail(ctx, execution, ec, node.ID, err)

			return failedResult(execution.ID, err), err
		}

		if result.suspend != nil {
			pending := slices.Concat(result.next, popOrder(stack))

			return e.suspend(ctx, execution, ec, node.ID, result.suspend, pending)
		}

		stack = pushReversed(stack, result.next)
	}

	return e.complete(ctx, execution, ec)
}

func (e *Executor) visitTraced(ctx context.Context, workflow *models.Workflow, node *models.WorkflowNode, ec *models.ExecutionContext) (step, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, ec.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
	)
	defer span.End()

	if spec, ok := node.Spec.(models.ActionSpec); ok {
		span.SetAttributes(attribute.String(otelhelper.ActionTypeKey, string(spec.ActionType)))
	}

	result, err := e.visit(ctx, workflow, node, ec)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func (e *Executor) visit(ctx context.Context, workflow *models.Workflow, node *models.WorkflowNode, ec *models.ExecutionContext) (step, error) {
	spec := node.Spec
	if spec == nil {
		var err error

		spec, err = models.DecodeNodeSpec(node.Kind, nil)
		if err != nil {
			return step{}, err
		}
	}

	switch spec := spec.(type) {
	case models.TriggerSpec:
		return step{next: successors(workflow, node.ID, nil)}, nil

	case models.ConditionSpec:
		matched := e.evaluator.EvaluateSpec(spec, ec.Scope())

		label := models.ConnectionFalse
		if matched {
			label = models.ConnectionTrue
		}

		e.logger.DebugContext(ctx, "Condition evaluated",
			"execution_id", ec.ExecutionID, "node_id", node.ID, "result", matched)

		return step{next: successors(workflow, node.ID, &label)}, nil

	case models.ActionSpec:
		return e.visitAction(ctx, workflow, node, spec, ec)

	case models.DelaySpec:
		return e.visitDelay(ctx, workflow, node, spec)

	case models.ApprovalSpec:
		return step{
			next:    successors(workflow, node.ID, nil),
			suspend: &suspension{reason: models.SuspendApproval},
		}, nil

	default:
		return step{}, fmt.Errorf("%w: %q", models.ErrUnknownNodeKind, node.Kind)
	}
}

func (e *Executor) visitAction(ctx context.Context, workflow *models.Workflow, node *models.WorkflowNode, spec models.ActionSpec, ec *models.ExecutionContext) (step, error) {
	outcome, err := e.dispatcher.Dispatch(ctx, spec, ec)
	if err != nil {
		return step{}, err
	}

	if !outcome.Success {
		continueOnError := !e.failOnActionError
		if spec.ContinueOnError != nil {
			continueOnError = *spec.ContinueOnError
		}

		if !continueOnError {
			return step{}, fmt.Errorf("%w: %s: %s", ErrActionFailed, spec.ActionType, outcome.Error)
		}

		e.logger.WarnContext(ctx, "Action failed, continuing",
			"execution_id", ec.ExecutionID,
			"node_id", node.ID,
			"action_type", spec.ActionType,
			"error", outcome.Error)
	}

	ec.Bind(outcome.Bindings)

	return step{next: successors(workflow, node.ID, nil)}, nil
}

func (e *Executor) visitDelay(ctx context.Context, workflow *models.Workflow, node *models.WorkflowNode, spec models.DelaySpec) (step, error) {
	duration, err := spec.ToDuration()
	if err != nil {
		return step{}, err
	}

	next := successors(workflow, node.ID, nil)

	if duration >= e.shortDelayThreshold {
		return step{next: next, suspend: &suspension{reason: models.SuspendDelay, delay: duration}}, nil
	}

	if duration > 0 {
		select {
		case <-e.clock.After(duration):
		case <-ctx.Done():
			return step{}, fmt.Errorf("delay interrupted: %w", ctx.Err())
		}
	}

	return step{next: next}, nil
}

// successors returns the target ids of the connections leaving nodeID, in
// listing order. A non-nil label keeps only connections with that type.
func successors(workflow *models.Workflow, nodeID string, label *models.ConnectionType) []string {
	var next []string

	for _, conn := range workflow.Outgoing(nodeID) {
		if label != nil && conn.Type != *label {
			continue
		}

		next = append(next, conn.TargetNodeID)
	}

	return next
}

func pushReversed(stack, ids []string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		stack = append(stack, ids[i])
	}

	return stack
}

// popOrder lists the work list in the order it would have been visited.
func popOrder(stack []string) []string {
	order := make([]string, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		order = append(order, stack[i])
	}

	return order
}
