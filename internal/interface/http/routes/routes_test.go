package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"task-api/internal/application/dto"
	"task-api/internal/application/service"
	"task-api/internal/infrastructure/repository/memory"
	"task-api/internal/infrastructure/telemetry"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store := memory.NewStore()
	tel := telemetry.NewNoop()

	users := service.NewUserService(store.Users(), nil, tel).WithHashCost(bcrypt.MinCost)
	tasks := service.NewTaskService(store.Tasks(), nil, tel)
	app := service.NewAppService(tel, "task-api", "test", "memory")

	mux := http.NewServeMux()
	NewRouter(users, tasks, app).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

const userBody = `{"username":"test_username","email":"test_user@example.com","password":"test_password1!"}`

func createUser(t *testing.T, mux http.Handler) dto.UserResponse {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/users", userBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /users = %d %s", rec.Code, rec.Body.String())
	}
	return decode[dto.UserResponse](t, rec)
}

func TestUsersLifecycle(t *testing.T) {
	mux := newTestMux(t)

	user := createUser(t, mux)
	if strings.Contains(do(t, mux, http.MethodGet, "/users/"+user.UserID.String(), "").Body.String(), "password") {
		t.Fatalf("user response leaks the password")
	}

	rec := do(t, mux, http.MethodPost, "/users", userBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate POST /users = %d, want 409", rec.Code)
	}

	rec = do(t, mux, http.MethodPut, "/users/"+user.UserID.String(), `{"username":"renamed_user"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /users/{id} = %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[dto.UserResponse](t, rec); got.Username != "renamed_user" || got.UpdatedAt == nil {
		t.Fatalf("unexpected update response: %+v", got)
	}

	rec = do(t, mux, http.MethodGet, "/users?page=1&size=50", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /users = %d", rec.Code)
	}
	page := decode[dto.PageResponse[dto.UserResponse]](t, rec)
	if page.Total != 1 || page.Pages != 1 || page.Size != 50 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	rec = do(t, mux, http.MethodDelete, "/users/"+user.UserID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /users/{id} = %d", rec.Code)
	}
	if got := decode[string](t, rec); got != user.UserID.String() {
		t.Fatalf("DELETE body = %q, want the id", got)
	}

	rec = do(t, mux, http.MethodDelete, "/users/"+user.UserID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second DELETE = %d, want 404", rec.Code)
	}
	if got := decode[dto.ErrorResponse](t, rec); got.Code != "USER_NOT_FOUND" {
		t.Fatalf("unexpected error body: %+v", got)
	}
}

func TestTasksLifecycle(t *testing.T) {
	mux := newTestMux(t)
	user := createUser(t, mux)

	body := `{"name":"Test name","description":"Test description","userId":"` + user.UserID.String() + `"}`
	rec := do(t, mux, http.MethodPost, "/tasks", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /tasks = %d %s", rec.Code, rec.Body.String())
	}
	task := decode[dto.TaskResponse](t, rec)

	rec = do(t, mux, http.MethodGet, "/users/tasks/"+user.UserID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /users/tasks/{id} = %d", rec.Code)
	}
	owned := decode[dto.UserTasksResponse](t, rec)
	if len(owned.Tasks) != 1 || owned.Tasks[0].TaskID != task.TaskID {
		t.Fatalf("unexpected user tasks: %+v", owned)
	}
	if strings.Contains(rec.Body.String(), `"tasks":[{"userId"`) {
		t.Fatalf("nested tasks should not carry userId: %s", rec.Body.String())
	}

	rec = do(t, mux, http.MethodPut, "/tasks/"+task.TaskID.String(), `{"name":"Renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /tasks/{id} = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/tasks", "")
	page := decode[dto.PageResponse[dto.TaskResponse]](t, rec)
	if rec.Code != http.StatusOK || page.Total != 1 || page.Page != 1 || page.Size != 50 {
		t.Fatalf("GET /tasks = %d %+v", rec.Code, page)
	}

	rec = do(t, mux, http.MethodDelete, "/tasks/"+task.TaskID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /tasks/{id} = %d", rec.Code)
	}
	rec = do(t, mux, http.MethodGet, "/tasks/"+task.TaskID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET deleted task = %d, want 404", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "weak password",
			method:     http.MethodPost,
			path:       "/users",
			body:       `{"username":"test_username","email":"test_user@example.com","password":"password1"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "password",
		},
		{
			name:       "malformed json",
			method:     http.MethodPost,
			path:       "/users",
			body:       `{"username":`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "body",
		},
		{
			name:       "unknown owner",
			method:     http.MethodPost,
			path:       "/tasks",
			body:       `{"name":"Test name","description":"","userId":"` + uuid.NewString() + `"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "userId",
		},
		{
			name:       "missing description",
			method:     http.MethodPost,
			path:       "/tasks",
			body:       `{"name":"Test name","userId":"` + uuid.NewString() + `"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "description",
		},
		{
			name:       "invalid id",
			method:     http.MethodGet,
			path:       "/users/not-a-uuid",
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "id",
		},
		{
			name:       "oversized page",
			method:     http.MethodGet,
			path:       "/tasks?size=101",
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "size",
		},
		{
			name:       "unknown user",
			method:     http.MethodGet,
			path:       "/users/" + uuid.NewString(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown task update",
			method:     http.MethodPut,
			path:       "/tasks/" + uuid.NewString(),
			body:       `{}`,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantField == "" {
				return
			}
			got := decode[dto.ErrorResponse](t, rec)
			if len(got.Details[tt.wantField]) == 0 {
				t.Fatalf("details %v do not name %q", got.Details, tt.wantField)
			}
		})
	}
}

func TestRootAndHealth(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	if got := decode[map[string]interface{}](t, rec); got["status"] != "healthy" {
		t.Fatalf("unexpected health body: %v", got)
	}

	rec = do(t, mux, http.MethodPatch, "/users", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH /users = %d, want 405", rec.Code)
	}
}
