// Package models defines the core domain models for event-driven workflow automation.
package models

import (
	"errors"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusInactive WorkflowStatus = "inactive" // Editable, ignored by the router
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable, receives events
)

// TriggerType is the domain event kind a workflow listens for.
type TriggerType string

const (
	TriggerClientCreated        TriggerType = "client_created"
	TriggerClientUpdated        TriggerType = "client_updated"
	TriggerInvoiceCreated       TriggerType = "invoice_created"
	TriggerInvoiceOverdue       TriggerType = "invoice_overdue"
	TriggerInvoicePaid          TriggerType = "invoice_paid"
	TriggerAppointmentCreated   TriggerType = "appointment_created"
	TriggerAppointmentCancelled TriggerType = "appointment_cancelled"
	TriggerServiceCompleted     TriggerType = "service_completed"
	TriggerReminderDue          TriggerType = "reminder_due"
	TriggerManual               TriggerType = "manual"
)

// TriggerTypes lists every supported trigger type.
var TriggerTypes = []TriggerType{
	TriggerClientCreated,
	TriggerClientUpdated,
	TriggerInvoiceCreated,
	TriggerInvoiceOverdue,
	TriggerInvoicePaid,
	TriggerAppointmentCreated,
	TriggerAppointmentCancelled,
	TriggerServiceCompleted,
	TriggerReminderDue,
	TriggerManual,
}

// ErrUnknownTriggerType is returned for trigger types outside TriggerTypes.
var ErrUnknownTriggerType = errors.New("unknown trigger type")

// IsValid reports whether t is one of the known trigger types.
func (t TriggerType) IsValid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}

	return false
}

// TriggerFiltersKey is the TriggerConfig entry holding entity data equality filters.
const TriggerFiltersKey = "filters"

// Workflow is a tenant-authored automation: a trigger type plus a graph of nodes.
type Workflow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"                     validate:"required,min=3"`
	Description   string          `json:"description"`
	TriggerType   TriggerType     `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any  `json:"trigger_config,omitempty"`
	Status        WorkflowStatus  `json:"status"                   validate:"required,oneof=active inactive"`
	Owner         string          `json:"owner"                    validate:"required"`
	Nodes         []*WorkflowNode `json:"nodes"                    validate:"dive"`
	Connections   []*Connection   `json:"connections"              validate:"dive"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsActive reports whether the workflow accepts executions.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// TriggerFilters returns the entity data filters declared in the trigger configuration.
func (w *Workflow) TriggerFilters() map[string]any {
	if w.TriggerConfig == nil {
		return nil
	}

	filters, _ := w.TriggerConfig[TriggerFiltersKey].(map[string]any)

	return filters
}

// TriggerNode returns the workflow's entry node, or nil when the graph has none.
func (w *Workflow) TriggerNode() *WorkflowNode {
	for _, node := range w.Nodes {
		if node.Kind == NodeKindTrigger {
			return node
		}
	}

	return nil
}

// NodeByID finds a node in the workflow graph.
func (w *Workflow) NodeByID(id string) (*WorkflowNode, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// Outgoing returns the connections leaving nodeID in listing order.
func (w *Workflow) Outgoing(nodeID string) []*Connection {
	out := make([]*Connection, 0)

	for _, conn := range w.Connections {
		if conn.SourceNodeID == nodeID {
			out = append(out, conn)
		}
	}

	return out
}
