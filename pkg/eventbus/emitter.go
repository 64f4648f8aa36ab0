package eventbus

import (
	"context"
	"fmt"

	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
)

// Emitter is used by collaborators that own business entities to announce
// changes. The event is keyed by user so one tenant's events stay ordered.
type Emitter struct {
	publisher EventPublisher
}

func NewEmitter(publisher EventPublisher) *Emitter {
	return &Emitter{publisher: publisher}
}

// Emit publishes a domain event and returns its id.
func (e *Emitter) Emit(ctx context.Context, triggerType models.TriggerType, entityData map[string]any, userID string) (string, error) {
	if !triggerType.IsValid() {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownTriggerType, triggerType)
	}

	event := events.NewDomainEvent(triggerType, entityData, userID)

	err := e.publisher.Publish(ctx, userID, event)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s event: %w", triggerType, err)
	}

	return event.ID, nil
}
