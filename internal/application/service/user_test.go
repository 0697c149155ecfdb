package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"task-api/internal/application/dto"
	"task-api/internal/domain/entity"
	domainErrors "task-api/internal/domain/errors"
	"task-api/internal/domain/event"
	"task-api/internal/domain/repository"
	domainService "task-api/internal/domain/service"
	"task-api/internal/infrastructure/repository/memory"
	"task-api/internal/infrastructure/telemetry"
)

var (
	_ domainService.UserService = (*UserService)(nil)
	_ domainService.TaskService = (*TaskService)(nil)
	_ domainService.AppService  = (*AppService)(nil)
)

type capturePublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturePublisher) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Type, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func newServices(t *testing.T) (*UserService, *TaskService, *memory.Store, *capturePublisher) {
	t.Helper()
	store := memory.NewStore()
	pub := &capturePublisher{}
	tel := telemetry.NewNoop()
	users := NewUserService(store.Users(), pub, tel).WithHashCost(bcrypt.MinCost)
	tasks := NewTaskService(store.Tasks(), pub, tel)
	return users, tasks, store, pub
}

func validUser() dto.CreateUserRequest {
	return dto.CreateUserRequest{
		Username: "test_username",
		Email:    "test_user@example.com",
		Password: "test_password1!",
	}
}

func strPtr(s string) *string { return &s }

func TestUserCreate_ThenGet(t *testing.T) {
	users, _, store, pub := newServices(t)
	ctx := context.Background()

	created, err := users.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.UserID == uuid.Nil || created.CreatedAt.IsZero() || created.UpdatedAt != nil {
		t.Fatalf("unexpected create response: %+v", created)
	}

	got, err := users.Get(ctx, created.UserID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != created.Username || got.Email != created.Email || got.UserID != created.UserID {
		t.Fatalf("Get = %+v, want %+v", got, created)
	}

	stored, _ := store.Users().GetByID(ctx, created.UserID)
	if stored.PasswordHash == "test_password1!" {
		t.Fatalf("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("test_password1!")); err != nil {
		t.Fatalf("stored hash does not match: %v", err)
	}

	if types := pub.types(); len(types) != 1 || types[0] != event.Created {
		t.Fatalf("events = %v", types)
	}
}

func TestUserCreate_Validation(t *testing.T) {
	users, _, _, _ := newServices(t)

	cases := []struct {
		password string
		valid    bool
	}{
		{"password1", false},
		{"password1!", true},
		{"password!", false},
	}
	for i, c := range cases {
		req := validUser()
		req.Username = "user_" + string(rune('a'+i)) + "xxxx"
		req.Email = "u" + string(rune('a'+i)) + "@example.com"
		req.Password = c.password

		_, err := users.Create(context.Background(), req)
		if c.valid && err != nil {
			t.Fatalf("password %q: unexpected error %v", c.password, err)
		}
		if !c.valid && !domainErrors.IsValidationError(err) {
			t.Fatalf("password %q: expected validation error, got %v", c.password, err)
		}
	}
}

func TestUserCreate_DuplicateIsConflict(t *testing.T) {
	users, _, _, _ := newServices(t)
	ctx := context.Background()

	if _, err := users.Create(ctx, validUser()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sameName := validUser()
	sameName.Email = "other@example.com"
	_, err := users.Create(ctx, sameName)
	if !domainErrors.IsConflict(err) {
		t.Fatalf("duplicate username: expected conflict, got %v", err)
	}

	sameEmail := validUser()
	sameEmail.Username = "other_username"
	_, err = users.Create(ctx, sameEmail)
	if !domainErrors.IsConflict(err) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}
	var de *domainErrors.DomainError
	if !errors.As(err, &de) || de.Context["field"] != "email" {
		t.Fatalf("conflict should name the email field, got %+v", de)
	}
}

func TestUser_UnknownIDIsNotFound(t *testing.T) {
	users, _, _, _ := newServices(t)
	ctx := context.Background()
	id := uuid.NewString()

	if _, err := users.Get(ctx, id); !domainErrors.IsNotFound(err) {
		t.Fatalf("Get: expected not found, got %v", err)
	}
	if _, err := users.Update(ctx, id, dto.UpdateUserRequest{Username: strPtr("new_username")}); !domainErrors.IsNotFound(err) {
		t.Fatalf("Update: expected not found, got %v", err)
	}
	if _, err := users.Delete(ctx, id); !domainErrors.IsNotFound(err) {
		t.Fatalf("Delete: expected not found, got %v", err)
	}
	if _, err := users.GetUserTasks(ctx, id); !domainErrors.IsNotFound(err) {
		t.Fatalf("GetUserTasks: expected not found, got %v", err)
	}
}

func TestUser_MalformedIDIsValidation(t *testing.T) {
	users, _, _, _ := newServices(t)
	_, err := users.Get(context.Background(), "not-a-uuid")
	if !domainErrors.IsValidationError(err) || !errors.Is(err, domainErrors.ErrInvalidID) {
		t.Fatalf("expected INVALID_ID, got %v", err)
	}
}

func TestUserUpdate(t *testing.T) {
	users, _, _, pub := newServices(t)
	ctx := context.Background()

	created, err := users.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created.UserID.String()

	// Empty update leaves every field but updatedAt untouched.
	same, err := users.Update(ctx, id, dto.UpdateUserRequest{})
	if err != nil {
		t.Fatalf("empty Update: %v", err)
	}
	if same.Username != created.Username || same.Email != created.Email || !same.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("empty update changed fields: %+v vs %+v", same, created)
	}

	updated, err := users.Update(ctx, id, dto.UpdateUserRequest{Email: strPtr("New_Mail@Example.com")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "new_mail@example.com" || updated.Username != created.Username || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := users.Update(ctx, id, dto.UpdateUserRequest{Username: strPtr("abc")}); !domainErrors.IsValidationError(err) {
		t.Fatalf("short username: expected validation error, got %v", err)
	}

	other := validUser()
	other.Username = "other_username"
	other.Email = "other@example.com"
	if _, err := users.Create(ctx, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}
	if _, err := users.Update(ctx, id, dto.UpdateUserRequest{Username: strPtr("other_username")}); !domainErrors.IsConflict(err) {
		t.Fatalf("update onto taken username: expected conflict, got %v", err)
	}

	types := pub.types()
	if types[1] != event.Updated {
		t.Fatalf("events = %v", types)
	}
}

func TestUserDelete_TwiceIsNotFound(t *testing.T) {
	users, tasks, _, pub := newServices(t)
	ctx := context.Background()

	created, err := users.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	task, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: "Test name", Description: strPtr(""), UserID: created.UserID.String()})
	if err != nil {
		t.Fatalf("Create task: %v", err)
	}

	id, err := users.Delete(ctx, created.UserID.String())
	if err != nil || id != created.UserID {
		t.Fatalf("Delete = %s, %v", id, err)
	}
	if _, err := users.Delete(ctx, created.UserID.String()); !domainErrors.IsNotFound(err) {
		t.Fatalf("second Delete: expected not found, got %v", err)
	}
	if _, err := tasks.Get(ctx, task.TaskID.String()); !domainErrors.IsNotFound(err) {
		t.Fatalf("task should be gone with its owner, got %v", err)
	}

	types := pub.types()
	if types[len(types)-1] != event.Deleted {
		t.Fatalf("events = %v", types)
	}
}

func TestUserList_Pagination(t *testing.T) {
	users, _, _, _ := newServices(t)
	ctx := context.Background()

	if _, err := users.Create(ctx, validUser()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	page, err := users.List(ctx, dto.ListRequest{Page: 1, Size: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pages != 1 || page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: pages=%d total=%d items=%d", page.Pages, page.Total, len(page.Items))
	}

	if _, err := users.List(ctx, dto.ListRequest{Page: 1, Size: 101}); !domainErrors.IsValidationError(err) {
		t.Fatalf("size 101: expected validation error, got %v", err)
	}
	far, err := users.List(ctx, dto.ListRequest{Page: 1<<62 + 1, Size: 2})
	if err != nil {
		t.Fatalf("List far page: %v", err)
	}
	if len(far.Items) != 0 || far.Total != 1 || far.Page != 1<<62+1 {
		t.Fatalf("far page should be empty with real totals: %+v", far)
	}
}

func TestUserGetUserTasks(t *testing.T) {
	users, tasks, _, _ := newServices(t)
	ctx := context.Background()

	created, _ := users.Create(ctx, validUser())
	for _, name := range []string{"first", "second"} {
		if _, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: name, Description: strPtr(""), UserID: created.UserID.String()}); err != nil {
			t.Fatalf("Create task: %v", err)
		}
	}

	resp, err := users.GetUserTasks(ctx, created.UserID.String())
	if err != nil {
		t.Fatalf("GetUserTasks: %v", err)
	}
	if resp.UserID != created.UserID || len(resp.Tasks) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	users, _, _, pub := newServices(t)
	pub.err = errors.New("broker down")

	if _, err := users.Create(context.Background(), validUser()); err != nil {
		t.Fatalf("Create with failing publisher: %v", err)
	}
}

type failingUserRepo struct {
	repository.UserRepository
}

func (failingUserRepo) GetByID(context.Context, uuid.UUID) (*entity.User, error) {
	return nil, repository.NewStorageError("get user", errors.New("connection reset"))
}

func (failingUserRepo) Insert(context.Context, *entity.User) error {
	return repository.NewStorageError("insert user", errors.New("connection reset"))
}

func TestStorageFailureIsInternal(t *testing.T) {
	users := NewUserService(failingUserRepo{}, nil, telemetry.NewNoop()).WithHashCost(bcrypt.MinCost)

	if _, err := users.Get(context.Background(), uuid.NewString()); !domainErrors.IsInternal(err) {
		t.Fatalf("Get: expected internal error, got %v", err)
	}
	_, err := users.Create(context.Background(), validUser())
	if !domainErrors.IsInternal(err) {
		t.Fatalf("Create: expected internal error, got %v", err)
	}
	var se *repository.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("internal error should keep the storage cause, got %v", err)
	}
}
