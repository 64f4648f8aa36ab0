package engine

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrWorkflowNotActive = errors.New("workflow is not active")
	// ErrMissingTrigger is returned when a workflow graph has no trigger node.
	ErrMissingTrigger = errors.New("workflow has no trigger node")
	ErrNodeNotFound   = errors.New("node not found in workflow graph")
	// ErrTraversalLimit is returned when a run visits more nodes than allowed,
	// which only happens on cyclic graphs.
	ErrTraversalLimit = errors.New("node visit limit exceeded")
	// ErrActionFailed is returned when an action marked fatal does not succeed.
	ErrActionFailed = errors.New("action failed")

	// ErrExecutionNotPaused is returned when resuming an execution that is not
	// paused, including when a concurrent resume won the transition.
	ErrExecutionNotPaused  = errors.New("execution is not paused")
	ErrNotAwaitingApproval = errors.New("execution is not awaiting approval")
	ErrNotDue              = errors.New("execution delay has not elapsed")
	ErrApprovalRejected    = errors.New("approval rejected")
)

// ErrExecutionBusy is returned when the execution is running or another
// caller claimed it first. It matches ErrExecutionNotPaused.
var ErrExecutionBusy = fmt.Errorf("%w: claimed by another caller", ErrExecutionNotPaused)
