package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/autoflow/pkg/events"
)

// ErrAlreadySubscribed is returned when Handle is called after Subscribe.
var ErrAlreadySubscribed = errors.New("event bus already subscribed")

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.RWMutex
	subscribed    bool
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(logger *slog.Logger, pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "event_bus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.TopicFor(event.GetType()), msg)
}

// Subscribe starts consuming every topic that has at least one handler.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.subscribed {
		return ErrAlreadySubscribed
	}

	topics := make(map[string]struct{})
	for eventType := range eb.subscriptions {
		topics[events.TopicFor(eventType)] = struct{}{}
	}

	for topic := range topics {
		messages, err := eb.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		go eb.consume(ctx, messages)
	}

	eb.subscribed = true

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

		eb.mu.RLock()
		handler, exists := eb.subscriptions[eventType]
		eb.mu.RUnlock()

		if !exists {
			msg.Ack()

			continue
		}

		event, err := decode(eventType, msg.Payload)
		if err != nil {
			eb.logger.ErrorContext(ctx, "Dropping undecodable event", "event_type", eventType, "error", err)
			msg.Ack()

			continue
		}

		err = handler(ctx, event)
		if err != nil {
			eb.logger.ErrorContext(ctx, "Event handler failed", "event_type", eventType, "error", err)
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func decode(eventType events.EventType, payload []byte) (Event, error) {
	var event Event

	switch eventType {
	case events.DomainEventType:
		event = &events.DomainEvent{}
	case events.ExecutionStartedEvent:
		event = &events.ExecutionStarted{}
	case events.ExecutionCompletedEvent:
		event = &events.ExecutionCompleted{}
	case events.ExecutionFailedEvent:
		event = &events.ExecutionFailed{}
	case events.ExecutionPausedEvent:
		event = &events.ExecutionPaused{}
	case events.ExecutionResumedEvent:
		event = &events.ExecutionResumed{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	err := json.Unmarshal(payload, event)
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.subscribed {
		return ErrAlreadySubscribed
	}

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
