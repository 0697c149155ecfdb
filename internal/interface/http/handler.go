package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"task-api/internal/domain/service"
	"task-api/internal/infrastructure/config"
	"task-api/internal/infrastructure/telemetry"
	"task-api/internal/interface/http/middleware"
	"task-api/internal/interface/http/routes"
)

// Handler holds the HTTP handler dependencies
type Handler struct {
	userService service.UserService
	taskService service.TaskService
	appService  service.AppService
	server      *http.Server
	telemetry   *telemetry.Telemetry
	config      config.OtelConfig
}

// NewHandler creates a new HTTP handler
func NewHandler(
	userService service.UserService,
	taskService service.TaskService,
	appService service.AppService,
	tel *telemetry.Telemetry,
	cfg config.OtelConfig,
) *Handler {
	return &Handler{
		userService: userService,
		taskService: taskService,
		appService:  appService,
		telemetry:   tel,
		config:      cfg,
	}
}

// SetupRoutes sets up the HTTP routes with middleware
func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	router := routes.NewRouter(h.userService, h.taskService, h.appService)
	router.RegisterRoutes(mux)

	middlewareChain := middleware.ChainMiddleware(
		middleware.LoggingMiddlewareWithConfig(h.config.LogBodies),
		middleware.OtelHttpMiddleware("http.server"),
		middleware.RecoveryMiddleware,
		middleware.CORSMiddleware,
	)

	return middlewareChain(mux)
}

// StartWithAddr starts the HTTP server on the given port
func (h *Handler) StartWithAddr(ctx context.Context, addr string) error {
	handler := h.SetupRoutes()

	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", addr),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h.server.ListenAndServe()
}

// Stop stops the HTTP server
func (h *Handler) Stop(ctx context.Context) error {
	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}
