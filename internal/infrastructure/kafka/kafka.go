package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/infrastructure/config"
	"task-api/internal/infrastructure/telemetry"
)

// Producer writes entity event records to the events topic
type Producer struct {
	*kgo.Client
	topic  string
	tracer trace.Tracer
}

// Consumer reads the events topic as part of a consumer group
type Consumer struct {
	*kgo.Client
	tracer trace.Tracer
}

// RecordHandler processes one fetched record. A returned error is recorded
// on the record span; consumption continues with the next record.
type RecordHandler func(ctx context.Context, record *kgo.Record) error

// baseOpts are shared by producer and consumer clients
func baseOpts(cfg config.KafkaConfig) []kgo.Opt {
	return []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.WithHooks(kotel.NewKotel(
			kotel.WithTracer(kotel.NewTracer()),
			kotel.WithMeter(kotel.NewMeter()),
		).Hooks()...),
		kgo.ConnIdleTimeout(time.Duration(cfg.ConnIdleTime) * time.Second),
		kgo.DialTimeout(time.Duration(cfg.DialTimeout) * time.Second),
	}
}

// NewProducer creates an idempotent producer whose records default to
// cfg.Topic. The topic is created on first write when the broker allows it.
func NewProducer(cfg config.KafkaConfig, tel *telemetry.Telemetry) (*Producer, error) {
	opts := append(baseOpts(cfg),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	telemetry.Log(context.Background(), telemetry.LevelInfo, "Kafka event producer ready", nil,
		attribute.StringSlice("kafka.brokers", cfg.Brokers),
		attribute.String("kafka.topic", cfg.Topic),
	)

	return &Producer{Client: client, topic: cfg.Topic, tracer: tel.Tracer}, nil
}

// NewConsumer creates a group consumer of cfg.Topic. A new group starts
// from the earliest retained event.
func NewConsumer(cfg config.KafkaConfig, groupID string, tel *telemetry.Telemetry) (*Consumer, error) {
	opts := append(baseOpts(cfg),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.FetchMaxWait(500*time.Millisecond),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
	)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	telemetry.Log(context.Background(), telemetry.LevelInfo, "Kafka event consumer ready", nil,
		attribute.StringSlice("kafka.brokers", cfg.Brokers),
		attribute.String("kafka.topic", cfg.Topic),
		attribute.String("kafka.consumer_group", groupID),
	)

	return &Consumer{Client: client, tracer: tel.Tracer}, nil
}

// ProduceRecord writes one record synchronously. An empty record topic
// means the producer's default topic.
func (p *Producer) ProduceRecord(ctx context.Context, record *kgo.Record) error {
	topic := record.Topic
	if topic == "" {
		topic = p.topic
	}

	ctx, span := p.tracer.Start(ctx, "kafka.produce", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", topic),
		attribute.Int("messaging.message.body.size", len(record.Value)),
	)

	if err := p.ProduceSync(ctx, record).FirstErr(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "produce failed")
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.destination.partition", int(record.Partition)),
		attribute.Int64("messaging.kafka.message.offset", record.Offset),
	)
	telemetry.Log(ctx, telemetry.LevelDebug, "Event record produced", nil,
		attribute.String("kafka.topic", topic),
		attribute.Int64("kafka.offset", record.Offset),
	)
	return nil
}

// Consume polls until ctx is done or the client is closed, passing every
// record to handle in partition order
func (c *Consumer) Consume(ctx context.Context, handle RecordHandler) error {
	for {
		fetches := c.PollFetches(ctx)
		if fetches.IsClientClosed() {
			telemetry.Log(ctx, telemetry.LevelInfo, "Kafka client closed, consumer stopping", nil)
			return nil
		}
		if ctx.Err() != nil {
			telemetry.Log(ctx, telemetry.LevelInfo, "Kafka consumer shutting down", nil)
			return ctx.Err()
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			telemetry.Log(ctx, telemetry.LevelWarn, "Kafka fetch error", err,
				attribute.String("kafka.topic", topic),
				attribute.Int("kafka.partition", int(partition)),
			)
		})

		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			p.EachRecord(func(record *kgo.Record) {
				c.process(ctx, record, handle)
			})
		})
	}
}

func (c *Consumer) process(ctx context.Context, record *kgo.Record, handle RecordHandler) {
	// kotel leaves its receive span on the record
	if record.Context != nil {
		if sc := trace.SpanContextFromContext(record.Context); sc.IsValid() {
			ctx = trace.ContextWithSpanContext(ctx, sc)
		}
	}
	ctx, span := c.tracer.Start(ctx, "kafka.process_record", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", record.Topic),
		attribute.Int("messaging.kafka.destination.partition", int(record.Partition)),
		attribute.Int64("messaging.kafka.message.offset", record.Offset),
	)

	if err := handle(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record handling failed")
	}
}

// HealthCheck pings the seed brokers
func (p *Producer) HealthCheck(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "kafka.health_check")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		span.SetAttributes(attribute.Bool("kafka.healthy", false))
		return fmt.Errorf("kafka health check failed: %w", err)
	}

	span.SetAttributes(attribute.Bool("kafka.healthy", true))
	return nil
}

// Close flushes pending records and closes the client
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Kafka producer flush failed", err)
	}
	p.Client.Close()
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.Client.Close()
}
