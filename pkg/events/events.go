// Package events defines the domain events that trigger workflows and the
// lifecycle events emitted while executions run.
package events

import (
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topics.
const (
	Topic          = "autoflow.events"     // domain events consumed by the router
	LifecycleTopic = "autoflow.executions" // execution lifecycle notifications
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// DomainEventType is emitted by collaborators when an entity changes.
	DomainEventType EventType = "domain.event"

	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// DomainEvent announces that something happened to a business entity, e.g.
// an invoice became overdue. The router matches it against workflow triggers.
type DomainEvent struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	EntityData  map[string]any     `json:"entity_data"`
	UserID      string             `json:"user_id,omitempty"`
}

func (e DomainEvent) GetType() EventType {
	return DomainEventType
}

// NewDomainEvent builds a domain event for the given trigger type.
func NewDomainEvent(triggerType models.TriggerType, entityData map[string]any, userID string) DomainEvent {
	return DomainEvent{
		BaseEvent:   NewBaseEvent(DomainEventType, ""),
		TriggerType: triggerType,
		EntityData:  entityData,
		UserID:      userID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	UserID      string         `json:"user_id,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	NodeID      string        `json:"node_id,omitempty"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionPaused is emitted when a delay or approval node suspends a run.
type ExecutionPaused struct {
	BaseEvent

	ExecutionID string               `json:"execution_id"`
	NodeID      string               `json:"node_id"`
	Reason      models.SuspendReason `json:"reason"`
	ResumeAt    *time.Time           `json:"resume_at,omitempty"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DecidedBy   string `json:"decided_by,omitempty"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

// TopicFor returns the topic an event type is published on.
func TopicFor(eventType EventType) string {
	if eventType == DomainEventType {
		return Topic
	}

	return LifecycleTopic
}
