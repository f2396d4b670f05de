package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType defines the type of a session event.
type EventType string

const (
	EventSessionCreated   EventType = "SESSION_CREATED"
	EventReferencesLoaded EventType = "REFERENCES_LOADED"
	EventReferencesFailed EventType = "REFERENCES_FAILED"
	EventSessionEdited    EventType = "SESSION_EDITED"
	EventSessionDeleted   EventType = "SESSION_DELETED"
	EventSessionExpired   EventType = "SESSION_EXPIRED"
)

// Event is an immutable record of something that happened to a session.
type Event struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	SessionID string    `json:"session_id"`
	Namespace string    `json:"namespace,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EditPayload is the payload of EventSessionEdited.
type EditPayload struct {
	Mutations []string `json:"mutations"`
	Updaters  []string `json:"updaters,omitempty"`
}

// ToJSON converts payload to JSON bytes.
func (p EditPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// LoadFailedPayload is the payload of EventReferencesFailed.
type LoadFailedPayload struct {
	Error string `json:"error"`
}

// ToJSON converts payload to JSON bytes.
func (p LoadFailedPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

func newEvent(t EventType, sessionID, namespace string, now time.Time) *Event {
	ev := &Event{EventType: t, SessionID: sessionID, Namespace: namespace, CreatedAt: now}
	if id, err := uuid.NewV7(); err == nil {
		ev.EventID = id.String()
	}
	return ev
}

// EventHandler processes a session event. Handlers run synchronously and must not
// call back into the Service.
type EventHandler func(ctx context.Context, event *Event) error

// EventDispatcher routes session events to registered handlers.
type EventDispatcher struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
	log      *zap.Logger
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher(log *zap.Logger) *EventDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
		log:      log,
	}
}

// Register registers a handler for the given event types.
func (d *EventDispatcher) Register(handler EventHandler, eventTypes ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range eventTypes {
		d.handlers[t] = append(d.handlers[t], handler)
	}
}

// Dispatch dispatches an event to all registered handlers.
// All handlers are called sequentially. If any handler fails, the error is logged
// but remaining handlers are still executed (best-effort delivery).
func (d *EventDispatcher) Dispatch(ctx context.Context, event *Event) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventType]
	d.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.log.Error("Event handler failed",
				zap.String("event_type", string(event.EventType)),
				zap.String("event_id", event.EventID),
				zap.String("session_id", event.SessionID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler for %s failed: %w", event.EventType, err)
			}
		}
	}
	return firstErr
}

// LogEvents returns a handler that writes every event as a structured log line.
func LogEvents(log *zap.Logger) EventHandler {
	return func(_ context.Context, event *Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.String("session_id", event.SessionID),
		}
		if event.Namespace != "" {
			fields = append(fields, zap.String("namespace", event.Namespace))
		}
		if len(event.Payload) > 0 {
			fields = append(fields, zap.ByteString("payload", event.Payload))
		}
		log.Info("wizard session event", fields...)
		return nil
	}
}

// AllEventTypes lists every event type the Service emits.
var AllEventTypes = []EventType{
	EventSessionCreated,
	EventReferencesLoaded,
	EventReferencesFailed,
	EventSessionEdited,
	EventSessionDeleted,
	EventSessionExpired,
}
