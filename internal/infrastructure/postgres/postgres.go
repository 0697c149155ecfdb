package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-api/internal/infrastructure/config"
	"task-api/internal/infrastructure/telemetry"
)

// Client is the relational store connection shared by the user and task
// repositories
type Client struct {
	*gorm.DB
	pool   *sql.DB
	tracer trace.Tracer
}

// slogWriter routes gorm's printf-style logger into slog so SQL traces land
// in the same pipeline as the rest of the service
type slogWriter struct {
	level slog.Level
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	slog.Log(context.Background(), w.level, fmt.Sprintf(format, args...), "component", "gorm")
}

func newGormLogger(logSQL bool) logger.Interface {
	level, out := logger.Warn, slogWriter{level: slog.LevelWarn}
	if logSQL {
		level, out = logger.Info, slogWriter{level: slog.LevelInfo}
	}
	return logger.New(out, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// NewClient opens the pool described by cfg and pings it before returning
func NewClient(ctx context.Context, cfg config.PostgresConfig, tel *telemetry.Telemetry) (*Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:  newGormLogger(cfg.LogSQL),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping postgres at %s: %w", maskDSN(cfg.DSN), err)
	}

	telemetry.Log(ctx, telemetry.LevelInfo, "Relational store connected", nil,
		attribute.String("postgres.dsn", maskDSN(cfg.DSN)),
		attribute.Int("postgres.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("postgres.max_idle_conns", cfg.MaxIdleConns),
	)

	return &Client{DB: db, pool: pool, tracer: tel.Tracer}, nil
}

// HealthCheck pings the pool and records its usage on the span
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "postgres.health_check")
	defer span.End()

	stats := c.pool.Stats()
	span.SetAttributes(
		attribute.Int("postgres.pool.open", stats.OpenConnections),
		attribute.Int("postgres.pool.in_use", stats.InUse),
		attribute.Int64("postgres.pool.wait_count", stats.WaitCount),
	)

	if err := c.pool.PingContext(ctx); err != nil {
		span.SetAttributes(attribute.Bool("postgres.healthy", false))
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	span.SetAttributes(attribute.Bool("postgres.healthy", true))
	return nil
}

func (c *Client) Close() error {
	return c.pool.Close()
}

// AutoMigrate creates or alters the tables backing models
func (c *Client) AutoMigrate(ctx context.Context, models ...interface{}) error {
	ctx, span := c.tracer.Start(ctx, "postgres.auto_migrate")
	defer span.End()
	span.SetAttributes(attribute.Int("migration.models", len(models)))

	if err := c.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	telemetry.Log(ctx, telemetry.LevelInfo, "Database schema migrated", nil,
		attribute.Int("migration.models", len(models)),
	)
	return nil
}

// maskDSN hides the password of a URL-style DSN for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		if len(dsn) > 20 {
			return dsn[:10] + "***" + dsn[len(dsn)-7:]
		}
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
