package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/infrastructure/config"
	"task-api/internal/infrastructure/telemetry"
)

// Client is the entity cache backend. Values are opaque byte strings; the
// caller owns encoding and key layout.
type Client struct {
	*redis.Client
	tracer trace.Tracer
}

// NewClient creates a Redis client with tracing hooks and verifies it with a ping
func NewClient(ctx context.Context, cfg config.RedisConfig, tel *telemetry.Telemetry) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:     time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.WriteTimeout) * time.Second,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxConnAge:      time.Duration(cfg.MaxConnAge) * time.Minute,
		PoolTimeout:     time.Duration(cfg.PoolTimeout) * time.Second,
		IdleTimeout:     time.Duration(cfg.IdleTimeout) * time.Minute,
	})
	rdb.AddHook(redisotel.NewTracingHook())

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	telemetry.Log(ctx, telemetry.LevelInfo, "Entity cache connected", nil,
		attribute.String("redis.addr", cfg.Addr),
		attribute.Int("redis.db", cfg.DB),
		attribute.Int("cache.ttl_seconds", cfg.TTLSeconds),
	)

	return &Client{Client: rdb, tracer: tel.Tracer}, nil
}

// HealthCheck pings Redis and annotates the span with pool usage
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "redis.health_check")
	defer span.End()

	stats := c.PoolStats()
	span.SetAttributes(
		attribute.Int64("redis.pool.total_conns", int64(stats.TotalConns)),
		attribute.Int64("redis.pool.idle_conns", int64(stats.IdleConns)),
		attribute.Int64("redis.pool.timeouts", int64(stats.Timeouts)),
	)

	if err := c.Ping(ctx).Err(); err != nil {
		span.SetAttributes(attribute.Bool("redis.healthy", false))
		return fmt.Errorf("redis health check failed: %w", err)
	}

	span.SetAttributes(attribute.Bool("redis.healthy", true))
	return nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// Load reads key. A missing key is reported as ok=false with a nil error.
func (c *Client) Load(ctx context.Context, key string) (value []byte, ok bool, err error) {
	ctx, span := c.tracer.Start(ctx, "cache.load")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	value, err = c.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	case err != nil:
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return value, true, nil
}

// versionTTL bounds how long an untouched version counter lives. It only has
// to outlast a single in-flight fill.
const versionTTL = 24 * time.Hour

func versionKey(key string) string { return key + ":v" }

// storeIfVersion sets KEYS[1] only while KEYS[2] still holds ARGV[1]; a
// missing counter reads as 0
var storeIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[2])
if (v or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// Version returns the invalidation counter of key, 0 when never invalidated
func (c *Client) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// StoreIfVersion writes key unless Invalidate ran since version was read.
// ttl <= 0 keeps the key until invalidated.
func (c *Client) StoreIfVersion(ctx context.Context, key string, version int64, value []byte, ttl time.Duration) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "cache.store")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int64("cache.version", version),
		attribute.String("cache.ttl", ttl.String()),
	)

	n, err := storeIfVersion.Run(ctx, c.Client,
		[]string{key, versionKey(key)},
		strconv.FormatInt(version, 10), value, ttl.Milliseconds(),
	).Int()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("cache.stored", n == 1))
	return n == 1, nil
}

// Invalidate deletes keys and bumps their versions in one transaction
func (c *Client) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "cache.invalidate")
	defer span.End()
	span.SetAttributes(attribute.Int("cache.key_count", len(keys)))

	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, versionKey(key))
			pipe.Expire(ctx, versionKey(key), versionTTL)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
