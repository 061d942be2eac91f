package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/outbox/domain"
)

// HandlerFunc processes the decoded payload of one event type. Handlers run with
// at-least-once semantics and must tolerate duplicate delivery.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// EventDispatcher routes messages to handlers registered by event type tag.
// Consumers subscribe by type tag only; the payload stays opaque to the relay.
type EventDispatcher struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Register binds a handler to an event type, replacing any previous binding.
func (d *EventDispatcher) Register(eventType string, handler HandlerFunc) {
	d.handlers[eventType] = handler
}

// Dispatch decodes the message payload and invokes the registered handler.
// Unknown event types are logged and treated as delivered so a stale message
// cannot wedge the queue; corrupt payloads are a fatal channel and surface as
// ErrProcessing rather than being swallowed.
func (d *EventDispatcher) Dispatch(ctx context.Context, msg *domain.Message) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		return apperrors.Wrap(apperrors.ErrProcessing, "corrupt outbox payload: "+err.Error())
	}

	handler, ok := d.handlers[msg.EventType]
	if !ok {
		if d.logger != nil {
			d.logger.Warn("no handler for event type",
				slog.String("event_type", msg.EventType),
				slog.String("message_id", msg.ID.String()),
			)
		}
		return nil
	}

	return handler(ctx, payload)
}
