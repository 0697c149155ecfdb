package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-api/internal/application/dto"
	"task-api/internal/domain/service"
)

// UsersHandler handles requests to the users endpoints
type UsersHandler struct {
	userService service.UserService
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(userService service.UserService) *UsersHandler {
	return &UsersHandler{
		userService: userService,
	}
}

// List handles GET /users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users"),
		attribute.String("handler", "users"),
		attribute.String("operation", "list"),
	)

	query := r.URL.Query()
	req, err := dto.ParseListRequest(query.Get("page"), query.Get("size"))
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	response, err := h.userService.List(ctx, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, response, http.StatusOK)
}

// Get handles GET /users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users/{id}"),
		attribute.String("handler", "users"),
		attribute.String("operation", "get"),
		attribute.String("user.id", idStr),
	)

	user, err := h.userService.Get(ctx, idStr)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, user, http.StatusOK)
}

// GetTasks handles GET /users/tasks/{id}
func (h *UsersHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users/tasks/{id}"),
		attribute.String("handler", "users"),
		attribute.String("operation", "get_tasks"),
		attribute.String("user.id", idStr),
	)

	tasks, err := h.userService.GetUserTasks(ctx, idStr)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, tasks, http.StatusOK)
}

// Create handles POST /users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateUserRequest
	if err := dto.Decode(r.Body, &req); err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users"),
		attribute.String("handler", "users"),
		attribute.String("operation", "create"),
		attribute.String("user.name", req.Username),
	)

	user, err := h.userService.Create(ctx, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, user, http.StatusOK)
}

// Update handles PUT /users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	var req dto.UpdateUserRequest
	if err := dto.Decode(r.Body, &req); err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users/{id}"),
		attribute.String("handler", "users"),
		attribute.String("operation", "update"),
		attribute.String("user.id", idStr),
	)

	user, err := h.userService.Update(ctx, idStr, req)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, user, http.StatusOK)
}

// Delete handles DELETE /users/{id}. The body is the deleted id.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("http.route", "/users/{id}"),
		attribute.String("handler", "users"),
		attribute.String("operation", "delete"),
		attribute.String("user.id", idStr),
	)

	id, err := h.userService.Delete(ctx, idStr)
	if err != nil {
		writeErrorResponseFromDomainError(ctx, w, err)
		return
	}

	writeJSONResponse(ctx, w, id, http.StatusOK)
}
