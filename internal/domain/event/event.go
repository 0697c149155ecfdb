package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names what happened to an entity
type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

// Entity kinds carried in events
const (
	EntityUser = "user"
	EntityTask = "task"
)

// Event is emitted after a successful write. Payload is the response shape
// of the entity (nil for deletes).
type Event struct {
	Type       Type        `json:"type"`
	Entity     string      `json:"entity"`
	EntityID   uuid.UUID   `json:"entityId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New builds an event stamped with the current UTC time
func New(t Type, entity string, id uuid.UUID, payload interface{}) Event {
	return Event{
		Type:       t,
		Entity:     entity,
		EntityID:   id,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers entity events to interested parties
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
