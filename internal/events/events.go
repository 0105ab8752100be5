package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatasetRequestEvent asks for a dataset export or import to be carried out.
// The event ID doubles as the ID of the job created for it, so the emitter
// can report the job to its client before the job has run.
type DatasetRequestEvent struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	RequestedBy uuid.UUID       `json:"requested_by"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewDatasetRequestEvent creates an event of eventType carrying payload as JSON.
func NewDatasetRequestEvent(eventType string, requestedBy uuid.UUID, payload any) (*DatasetRequestEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event payload: %w", eventType, err)
	}

	return &DatasetRequestEvent{
		ID:          uuid.New(),
		Type:        eventType,
		RequestedBy: requestedBy,
		Payload:     data,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *DatasetRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler processes dataset request events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *DatasetRequestEvent) error
}

// HandlerFunc adapts a plain function to EventHandler.
type HandlerFunc func(ctx context.Context, event *DatasetRequestEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *DatasetRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *DatasetRequestEvent) error
}
