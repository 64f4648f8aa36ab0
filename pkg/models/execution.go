package models

import "time"

// ExecutionStatus is the state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// IsTerminal reports whether no further transition is expected.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// SuspendReason tells why a run is paused.
type SuspendReason string

const (
	SuspendDelay    SuspendReason = "delay"
	SuspendApproval SuspendReason = "approval"
)

// Checkpoint is the resumption point of a paused execution.
type Checkpoint struct {
	Reason SuspendReason `json:"reason"`
	// NodeID is the delay or approval node that suspended the run.
	NodeID string `json:"node_id"`
	// NextNodeIDs is the work list to visit on resume, in visiting order.
	NextNodeIDs []string `json:"next_node_ids"`
	// ResumeAt is set for delays: the run must not resume earlier.
	ResumeAt *time.Time `json:"resume_at,omitempty"`
}

// IsDue reports whether a delay checkpoint may resume at now.
func (c *Checkpoint) IsDue(now time.Time) bool {
	if c == nil || c.Reason != SuspendDelay {
		return false
	}

	return c.ResumeAt == nil || !c.ResumeAt.After(now)
}

// Execution is the ledger record of one workflow run.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	UserID      string          `json:"user_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	Variables   map[string]any  `json:"variables,omitempty"`
	Checkpoint  *Checkpoint     `json:"checkpoint,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
	// Version increases on every write. Claims on a paused run must name the
	// version they read.
	Version int64 `json:"version"`
}
