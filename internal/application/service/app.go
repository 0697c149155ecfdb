package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/infrastructure/telemetry"
)

// Dependency is a backing service probed by the health check
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// AppService handles application-level operations
type AppService struct {
	telemetry *telemetry.Telemetry
	tracer    trace.Tracer
	name      string
	version   string
	storage   string
	deps      []Dependency
}

// NewAppService creates a new AppService
func NewAppService(tel *telemetry.Telemetry, name, version, storage string, deps ...Dependency) *AppService {
	return &AppService{
		telemetry: tel,
		tracer:    tel.Tracer,
		name:      name,
		version:   version,
		storage:   storage,
		deps:      deps,
	}
}

// HealthCheck probes every dependency with a short deadline. healthy is
// false when any probe fails.
func (s *AppService) HealthCheck(ctx context.Context) (report map[string]interface{}, healthy bool) {
	ctx, span := s.tracer.Start(ctx, "AppService.HealthCheck")
	defer span.End()

	span.SetAttributes(
		attribute.String("operation", "health_check"),
	)

	checks := make(map[string]interface{}, len(s.deps))
	healthy = true
	for _, dep := range s.deps {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dep.Check(checkCtx)
		cancel()

		if err != nil {
			healthy = false
			checks[dep.Name] = "unavailable"
			telemetry.Log(ctx, telemetry.LevelWarn, "Dependency health check failed", err,
				attribute.String("dependency", dep.Name),
			)
			continue
		}
		checks[dep.Name] = "ok"
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	span.SetAttributes(attribute.String("status", status))

	return map[string]interface{}{
		"status":  status,
		"service": s.name,
		"version": s.version,
		"storage": s.storage,
		"checks":  checks,
	}, healthy
}

// GetWelcomeMessage returns a welcome message
func (s *AppService) GetWelcomeMessage(ctx context.Context) (map[string]interface{}, error) {
	ctx, span := s.tracer.Start(ctx, "AppService.GetWelcomeMessage")
	defer span.End()

	span.SetAttributes(
		attribute.String("operation", "get_welcome_message"),
	)

	telemetry.Log(ctx, telemetry.LevelDebug, "Getting welcome message", nil,
		attribute.String("operation", "get_welcome_message"),
	)

	return map[string]interface{}{
		"message":     "Welcome to the task API",
		"application": s.name,
		"version":     s.version,
		"status":      "running",
	}, nil
}
