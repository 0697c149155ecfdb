package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/infrastructure/telemetry"
)

// KV is the byte store behind the decorators. The redis Client satisfies it.
//
// Every key carries a version that Invalidate bumps. A fill reads the version
// before going to the store and writes only if it is unchanged, so a reader
// that raced a write can never put the old row back.
type KV interface {
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Version(ctx context.Context, key string) (int64, error)
	StoreIfVersion(ctx context.Context, key string, version int64, value []byte, ttl time.Duration) (stored bool, err error)
	Invalidate(ctx context.Context, keys ...string) error
}

const keyPrefix = "task-api:"

// braces make a key and its version share a cluster slot
func userKey(id uuid.UUID) string { return keyPrefix + "{user:" + id.String() + "}" }
func taskKey(id uuid.UUID) string { return keyPrefix + "{task:" + id.String() + "}" }

// readThrough looks key up in kv and decodes it into dst. found is false on a
// miss or any cache failure; failures are logged and never returned.
func readThrough(ctx context.Context, kv KV, key string, dst interface{}) (found bool) {
	raw, ok, err := kv.Load(ctx, key)
	if err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache read failed", err, attribute.String("cache.key", key))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache entry undecodable, ignoring", err, attribute.String("cache.key", key))
		return false
	}
	return true
}

// fillVersion returns the version a later fill must match. ok is false when
// the version cannot be read; the caller then skips the fill.
func fillVersion(ctx context.Context, kv KV, key string) (version int64, ok bool) {
	version, err := kv.Version(ctx, key)
	if err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache version read failed", err, attribute.String("cache.key", key))
		return 0, false
	}
	return version, true
}

func fill(ctx context.Context, kv KV, key string, version int64, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache entry not encodable", err, attribute.String("cache.key", key))
		return
	}
	stored, err := kv.StoreIfVersion(ctx, key, version, raw, ttl)
	if err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache write failed", err, attribute.String("cache.key", key))
		return
	}
	if !stored {
		telemetry.Log(ctx, telemetry.LevelDebug, "Cache fill skipped, entry invalidated meanwhile", nil, attribute.String("cache.key", key))
	}
}

func invalidate(ctx context.Context, kv KV, keys ...string) {
	if err := kv.Invalidate(ctx, keys...); err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Cache invalidation failed", err, attribute.StringSlice("cache.keys", keys))
	}
}
