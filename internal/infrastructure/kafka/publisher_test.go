package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"task-api/internal/domain/event"
	"task-api/internal/infrastructure/telemetry"
)

type captureProducer struct {
	record *kgo.Record
	err    error
}

func (c *captureProducer) ProduceRecord(_ context.Context, record *kgo.Record) error {
	c.record = record
	return c.err
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEventPublisher_Publish(t *testing.T) {
	prod := &captureProducer{}
	pub := NewEventPublisher(prod, "entity.events", telemetry.NewNoop())

	id := uuid.New()
	if err := pub.Publish(context.Background(), event.New(event.Deleted, event.EntityTask, id, nil)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec := prod.record
	if rec.Topic != "entity.events" || string(rec.Key) != id.String() {
		t.Fatalf("topic=%q key=%q", rec.Topic, rec.Key)
	}
	if header(rec, HeaderEntity) != event.EntityTask || header(rec, HeaderEventType) != string(event.Deleted) {
		t.Fatalf("unexpected headers: %v", rec.Headers)
	}

	var got event.Event
	if err := json.Unmarshal(rec.Value, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != event.Deleted || got.Entity != event.EntityTask || got.EntityID != id {
		t.Fatalf("unexpected event: %+v", got)
	}

	prod.err = errors.New("broker down")
	if err := pub.Publish(context.Background(), event.New(event.Created, event.EntityUser, id, nil)); err == nil {
		t.Fatalf("expected producer error to propagate")
	}
}
