package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyEventType is returned when an event is built without a type.
var ErrEmptyEventType = errors.New("event type is required")

// TaskRequestEvent asks a background consumer to start work, such as
// generating a worksheet's task set. The payload is opaque to the emitter
// and decoded by the handler that owns Type.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// LogValue implements slog.LogValuer. The payload is left out since it may
// be large.
func (e *TaskRequestEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", e.ID.String()),
		slog.String("type", e.Type),
		slog.Time("created_at", e.CreatedAt))
}

// UnmarshalPayload decodes the payload into v. Decode failures match
// ErrInvalidPayload.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s event has no payload", ErrInvalidPayload, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s event: %w", ErrInvalidPayload, e.Type, err)
	}
	return nil
}

// NewTaskRequestEvent builds an event of eventType carrying payload as JSON.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	if eventType == "" {
		return nil, ErrEmptyEventType
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s event: %w", ErrInvalidPayload, eventType, err)
	}
	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler consumes events. Handlers ignore types they do not own.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter delivers events to the registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
