package handler

import (
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/domain/service"
	"task-api/internal/infrastructure/telemetry"
)

// HealthHandler handles requests to the health endpoint
type HealthHandler struct {
	appService service.AppService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(appService service.AppService) *HealthHandler {
	return &HealthHandler{appService: appService}
}

// Handle reports dependency health. Any failed probe turns the response
// into a 503.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/health"),
		attribute.String("handler", "health"),
	)
	span.AddEvent("Processing health check")

	telemetry.Log(ctx, telemetry.LevelDebug, "Processing health check", nil)

	response, healthy := h.appService.HealthCheck(ctx)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	response["memory"] = map[string]interface{}{
		"alloc":      m.Alloc,
		"totalAlloc": m.TotalAlloc,
		"sys":        m.Sys,
		"numGC":      m.NumGC,
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}
	span.AddEvent("Health check completed", trace.WithAttributes(attribute.Bool("healthy", healthy)))

	writeJSONResponse(ctx, w, response, statusCode)
}
