package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/application/dto"
	"task-api/internal/domain/service"
)

// TasksHandler handles requests to the tasks endpoints
type TasksHandler struct {
	taskService service.TaskService
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(taskService service.TaskService) *TasksHandler {
	return &TasksHandler{
		taskService: taskService,
	}
}

// List handles GET /tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/tasks"),
		attribute.String("handler", "tasks"),
		attribute.String("operation", "list"),
	)

	query := r.URL.Query()
	req, err := dto.ParseListRequest(query.Get("page"), query.Get("size"))
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	response, err := h.taskService.List(ctx, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, response, http.StatusOK)
}

// Get handles GET /tasks/{id}
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("http.route", "/tasks/{id}"),
		attribute.String("handler", "tasks"),
		attribute.String("operation", "get"),
		attribute.String("task.id", idStr),
	)

	task, err := h.taskService.Get(ctx, idStr)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, task, http.StatusOK)
}

// Create handles POST /tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateTaskRequest
	if err := dto.Decode(r.Body, &req); err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("http.route", "/tasks"),
		attribute.String("handler", "tasks"),
		attribute.String("operation", "create"),
		attribute.String("user.id", req.UserID),
	)

	task, err := h.taskService.Create(ctx, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, task, http.StatusOK)
}

// Update handles PUT /tasks/{id}
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	var req dto.UpdateTaskRequest
	if err := dto.Decode(r.Body, &req); err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("http.route", "/tasks/{id}"),
		attribute.String("handler", "tasks"),
		attribute.String("operation", "update"),
		attribute.String("task.id", idStr),
	)

	task, err := h.taskService.Update(ctx, idStr, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, task, http.StatusOK)
}

// Delete handles DELETE /tasks/{id}
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("http.route", "/tasks/{id}"),
		attribute.String("handler", "tasks"),
		attribute.String("operation", "delete"),
		attribute.String("task.id", idStr),
	)

	id, err := h.taskService.Delete(ctx, idStr)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, id, http.StatusOK)
}
