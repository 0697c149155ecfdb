package handler

import (
	"net/http"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/domain/service"
)

// RootHandler answers GET / with the service banner
type RootHandler struct {
	appService service.AppService
}

func NewRootHandler(appService service.AppService) *RootHandler {
	return &RootHandler{appService: appService}
}

func (h *RootHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trace.SpanFromContext(ctx).SetAttributes(semconv.HTTPRoute("/"))

	banner, err := h.appService.GetWelcomeMessage(ctx)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}
	banner["method"] = r.Method
	banner["endpoints"] = []string{"/users", "/tasks", "/health"}
	writeJSONResponse(ctx, w, banner, http.StatusOK)
}
