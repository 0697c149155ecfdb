package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/domain/errors"
	"task-api/internal/domain/event"
	"task-api/internal/domain/repository"
	"task-api/internal/infrastructure/telemetry"
)

// classifyStoreError is the single place where adapter failures become
// domain errors. conflict is the sentinel used for unique violations.
func classifyStoreError(err error, conflict *errors.DomainError, internalMsg string) error {
	if cv, ok := repository.AsConstraintViolation(err); ok {
		switch cv.Kind {
		case repository.ConstraintUnique:
			c := conflict.WithContext("constraint", cv.Constraint)
			c.Cause = err
			if cv.Field != "" {
				c.Message = cv.Field + " already exists"
				c.Context["field"] = cv.Field
			}
			return c
		case repository.ConstraintForeignKey:
			field := cv.Field
			if field == "" {
				field = "userId"
			}
			ve := errors.NewValidationError(map[string][]string{
				field: {"referenced user does not exist"},
			})
			ve.Cause = err
			return ve
		}
	}
	return errors.NewInternalError(internalMsg, err)
}

// parseID turns a path id into a uuid or an INVALID_ID validation error
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		e := errors.ErrInvalidID.WithContext("id", raw)
		e.Fields = map[string][]string{"id": {"id must be a valid UUID"}}
		e.Cause = err
		return uuid.Nil, e
	}
	return id, nil
}

// metricStatus maps an outcome onto the status attribute of
// entity_operations_total
func metricStatus(err error) string {
	if err == nil {
		return "success"
	}
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return "validation_error"
	case errors.KindNotFound:
		return "not_found"
	case errors.KindConflict:
		return "conflict"
	default:
		return "error"
	}
}

// recorder is embedded by the entity services for span and metric upkeep
type recorder struct {
	entity    string
	telemetry *telemetry.Telemetry
	tracer    trace.Tracer
	events    event.Publisher
}

// finish closes out an operation: it annotates the span, logs failures at a
// level matching their kind and bumps the operation counter.
func (r *recorder) finish(ctx context.Context, span trace.Span, operation string, err error) {
	status := metricStatus(err)
	if err != nil {
		span.SetAttributes(attribute.String("error", status))
		if errors.IsInternal(err) {
			span.SetStatus(codes.Error, "internal error")
			telemetry.Log(ctx, telemetry.LevelError, "Operation failed", err,
				attribute.String("entity", r.entity),
				attribute.String("operation", operation),
			)
		} else {
			telemetry.Log(ctx, telemetry.LevelWarn, "Operation rejected", err,
				attribute.String("entity", r.entity),
				attribute.String("operation", operation),
			)
		}
	}
	r.recordMetric(ctx, operation, status)
}

// recordMetric records a metric for entity operations
func (r *recorder) recordMetric(ctx context.Context, operation, status string) {
	if r.telemetry != nil && r.telemetry.EntityCounter != nil {
		r.telemetry.EntityCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", r.entity),
			attribute.String("operation", operation),
			attribute.String("status", status),
		))
	}
}

// publish emits an entity event after a committed write. Failures are only
// logged; the write already happened.
func (r *recorder) publish(ctx context.Context, t event.Type, id uuid.UUID, payload interface{}) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, event.New(t, r.entity, id, payload)); err != nil {
		telemetry.Log(ctx, telemetry.LevelWarn, "Failed to publish entity event", err,
			attribute.String("entity", r.entity),
			attribute.String("event.type", string(t)),
			attribute.String("entity.id", id.String()),
		)
	}
}
