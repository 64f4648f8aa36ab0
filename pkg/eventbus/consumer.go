package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/events"
)

// DomainEventHandler processes one domain event. It returns once every
// workflow started for the event has finished or suspended.
type DomainEventHandler interface {
	HandleDomainEvent(ctx context.Context, event events.DomainEvent)
}

// Consumer feeds domain events from the bus into a handler.
type Consumer struct {
	subscriber EventSubscriber
	handler    DomainEventHandler
	logger     *slog.Logger
}

func NewConsumer(logger *slog.Logger, subscriber EventSubscriber, handler DomainEventHandler) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		handler:    handler,
		logger:     logger.With("module", "domain_event_consumer"),
	}
}

// Start registers the domain event handler and begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.subscriber.Handle(events.DomainEventType, func(ctx context.Context, event any) error {
		domainEvent, ok := event.(*events.DomainEvent)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		c.logger.DebugContext(ctx, "Domain event received",
			"event_id", domainEvent.ID,
			"trigger_type", domainEvent.TriggerType,
			"user_id", domainEvent.UserID)

		c.handler.HandleDomainEvent(ctx, *domainEvent)

		return nil
	})
	if err != nil {
		return err
	}

	return c.subscriber.Subscribe(ctx)
}
