package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Handler processes one decoded event. Returning an error nacks the message.
type Handler func(ctx context.Context, event *Event) error

// Consume subscribes to topic and feeds every message to handle until ctx is cancelled.
// Undecodable payloads are acked and dropped.
func Consume(ctx context.Context, subscriber message.Subscriber, topic string, handle Handler, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			if err := handle(msg.Context(), &event); err != nil {
				logger.Error("Event handler failed", "event_id", event.ID, "event_type", event.Type, "error", err)
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

// LogHandler records each event at info level.
func LogHandler(logger *slog.Logger) Handler {
	return func(_ context.Context, event *Event) error {
		logger.Info("Event received",
			"event_id", event.ID,
			"event_type", event.Type,
			"key", event.Key)
		return nil
	}
}
