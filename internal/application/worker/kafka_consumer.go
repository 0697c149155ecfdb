package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"task-api/internal/domain/event"
	"task-api/internal/infrastructure/kafka"
	"task-api/internal/infrastructure/telemetry"
)

// KafkaWorker consumes entity events and records them as logs and metrics
type KafkaWorker struct {
	consumer  *kafka.Consumer
	telemetry *telemetry.Telemetry
	done      chan struct{}
}

// NewKafkaWorker creates a new Kafka worker instance
func NewKafkaWorker(consumer *kafka.Consumer, tel *telemetry.Telemetry) *KafkaWorker {
	return &KafkaWorker{
		consumer:  consumer,
		telemetry: tel,
		done:      make(chan struct{}),
	}
}

// Start begins the Kafka consumer in a separate goroutine
func (w *KafkaWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		w.startConsumer(ctx)
	}()
}

// Done is closed once the consumer loop has returned
func (w *KafkaWorker) Done() <-chan struct{} {
	return w.done
}

func (w *KafkaWorker) startConsumer(ctx context.Context) {
	if err := w.consumer.Consume(ctx, w.handleRecord); err != nil && ctx.Err() == nil {
		telemetry.Log(ctx, telemetry.LevelError, "Kafka consumer error", err)
	}
}

// handleRecord decodes one entity event. Undecodable records are reported
// and skipped; the consumer never stops on a bad record.
func (w *KafkaWorker) handleRecord(ctx context.Context, record *kgo.Record) error {
	var e event.Event
	if err := json.Unmarshal(record.Value, &e); err != nil {
		w.count(ctx, headerOr(record, kafka.HeaderEntity, "unknown"), headerOr(record, kafka.HeaderEventType, "unknown"), "decode_error")
		telemetry.Log(ctx, telemetry.LevelWarn, "Skipping undecodable entity event", err,
			attribute.String("kafka.topic", record.Topic),
			attribute.Int64("kafka.offset", record.Offset),
		)
		return fmt.Errorf("decode entity event: %w", err)
	}

	telemetry.Log(ctx, telemetry.LevelInfo, "Entity event received", nil,
		attribute.String("kafka.topic", record.Topic),
		attribute.Int64("kafka.offset", record.Offset),
		attribute.String("event.type", string(e.Type)),
		attribute.String("event.entity", e.Entity),
		attribute.String("event.entity_id", e.EntityID.String()),
	)
	w.count(ctx, e.Entity, string(e.Type), "consumed")
	return nil
}

func (w *KafkaWorker) count(ctx context.Context, entity, eventType, status string) {
	if w.telemetry == nil || w.telemetry.EventCounter == nil {
		return
	}
	w.telemetry.EventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("type", eventType),
		attribute.String("status", status),
	))
}

// headerOr returns the value of the first header named key, or def
func headerOr(record *kgo.Record, key, def string) string {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return def
}
