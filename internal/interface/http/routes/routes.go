package routes

import (
	"net/http"

	"task-api/internal/domain/service"
	"task-api/internal/interface/http/handler"
)

// Router holds the router dependencies
type Router struct {
	userService service.UserService
	taskService service.TaskService
	appService  service.AppService
}

// NewRouter creates a new router
func NewRouter(userService service.UserService, taskService service.TaskService, appService service.AppService) *Router {
	return &Router{
		userService: userService,
		taskService: taskService,
		appService:  appService,
	}
}

// RegisterRoutes registers all routes. Unmatched methods get the mux's
// own 405 with an Allow header.
func (r *Router) RegisterRoutes(mux *http.ServeMux) {
	rootHandler := handler.NewRootHandler(r.appService)
	healthHandler := handler.NewHealthHandler(r.appService)
	usersHandler := handler.NewUsersHandler(r.userService)
	tasksHandler := handler.NewTasksHandler(r.taskService)

	mux.HandleFunc("GET /{$}", rootHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler.Handle)

	mux.HandleFunc("POST /users", usersHandler.Create)
	mux.HandleFunc("GET /users", usersHandler.List)
	mux.HandleFunc("GET /users/{id}", usersHandler.Get)
	mux.HandleFunc("GET /users/tasks/{id}", usersHandler.GetTasks)
	mux.HandleFunc("PUT /users/{id}", usersHandler.Update)
	mux.HandleFunc("DELETE /users/{id}", usersHandler.Delete)

	mux.HandleFunc("POST /tasks", tasksHandler.Create)
	mux.HandleFunc("GET /tasks", tasksHandler.List)
	mux.HandleFunc("GET /tasks/{id}", tasksHandler.Get)
	mux.HandleFunc("PUT /tasks/{id}", tasksHandler.Update)
	mux.HandleFunc("DELETE /tasks/{id}", tasksHandler.Delete)
}
