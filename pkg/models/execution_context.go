package models

import "maps"

// ExecutionContext is the mutable state of one workflow run. It is owned by a
// single traversal and is not safe for concurrent use.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	UserID      string
	TriggerData map[string]any
	// Variables starts as a copy of TriggerData and accumulates node bindings.
	Variables map[string]any
	// Channels is nil when the user has no channel configuration.
	Channels *ChannelConfig
}

// NewExecutionContext seeds the variables from the trigger payload.
func NewExecutionContext(executionID, workflowID, userID string, triggerData map[string]any) *ExecutionContext {
	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		UserID:      userID,
		TriggerData: triggerData,
		Variables:   maps.Clone(triggerData),
	}
}

// Bind merges bindings into the variables; later bindings win.
func (ec *ExecutionContext) Bind(bindings map[string]any) {
	if len(bindings) == 0 {
		return
	}

	if ec.Variables == nil {
		ec.Variables = make(map[string]any, len(bindings))
	}

	maps.Copy(ec.Variables, bindings)
}

// Scope is the read view used by conditions and templating.
func (ec *ExecutionContext) Scope() Scope {
	return Scope{Variables: ec.Variables, TriggerData: ec.TriggerData}
}

// EmailChannel returns the email channel or nil.
func (ec *ExecutionContext) EmailChannel() *EmailChannel {
	if ec.Channels == nil {
		return nil
	}

	return ec.Channels.Email
}

// WhatsAppChannel returns the WhatsApp channel or nil.
func (ec *ExecutionContext) WhatsAppChannel() *WhatsAppChannel {
	if ec.Channels == nil {
		return nil
	}

	return ec.Channels.WhatsApp
}

// CalendarChannel returns the calendar channel or nil.
func (ec *ExecutionContext) CalendarChannel() *CalendarChannel {
	if ec.Channels == nil {
		return nil
	}

	return ec.Channels.Calendar
}
