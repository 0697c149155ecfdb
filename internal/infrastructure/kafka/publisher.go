package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"task-api/internal/domain/event"
	"task-api/internal/infrastructure/telemetry"
)

// Record header names carried by every entity event
const (
	HeaderEntity    = "entity"
	HeaderEventType = "event-type"
)

// recordProducer is the part of Producer the publisher uses
type recordProducer interface {
	ProduceRecord(ctx context.Context, record *kgo.Record) error
}

// EventPublisher publishes entity events as JSON records keyed by entity id,
// so every event of one entity lands on the same partition.
type EventPublisher struct {
	producer recordProducer
	topic    string
	tel      *telemetry.Telemetry
}

// NewEventPublisher creates a publisher writing to topic
func NewEventPublisher(producer recordProducer, topic string, tel *telemetry.Telemetry) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic, tel: tel}
}

var _ event.Publisher = (*EventPublisher)(nil)

// Publish encodes e and produces it synchronously
func (p *EventPublisher) Publish(ctx context.Context, e event.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s event: %w", e.Entity, e.Type, err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.EntityID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderEntity, Value: []byte(e.Entity)},
			{Key: HeaderEventType, Value: []byte(e.Type)},
		},
	}
	if err := p.producer.ProduceRecord(ctx, record); err != nil {
		p.count(ctx, e, "produce_error")
		return err
	}
	p.count(ctx, e, "produced")
	return nil
}

func (p *EventPublisher) count(ctx context.Context, e event.Event, status string) {
	if p.tel == nil || p.tel.EventCounter == nil {
		return
	}
	p.tel.EventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", e.Entity),
		attribute.String("type", string(e.Type)),
		attribute.String("status", status),
	))
}
