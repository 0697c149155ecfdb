package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/crypto/bcrypt"

	"task-api/internal/application/dto"
	"task-api/internal/domain/entity"
	"task-api/internal/domain/errors"
	"task-api/internal/domain/event"
	"task-api/internal/domain/repository"
	"task-api/internal/infrastructure/telemetry"
)

// UserService handles user-related business operations
type UserService struct {
	recorder
	repo     repository.UserRepository
	hashCost int
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(repo repository.UserRepository, events event.Publisher, tel *telemetry.Telemetry) *UserService {
	return &UserService{
		recorder: recorder{
			entity:    event.EntityUser,
			telemetry: tel,
			tracer:    tel.Tracer,
			events:    events,
		},
		repo:     repo,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost sets the bcrypt cost used for new passwords
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// Create validates the request, hashes the password and stores the user
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest) (resp *dto.UserResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Create")
	defer span.End()
	defer func() { s.finish(ctx, span, "create", err) }()

	span.SetAttributes(
		attribute.String("operation", "create_user"),
		attribute.String("user.name", req.Username),
	)

	telemetry.Log(ctx, telemetry.LevelInfo, "Creating user", nil,
		semconv.HTTPRoute("/users"),
		attribute.String("operation", "create"),
		attribute.String("user.name", req.Username),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	user := entity.NewUser(req.Username, req.Email, string(hash))
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to save user")
	}

	resp, err = dto.NewUserResponse(user)
	if err != nil {
		return nil, errors.NewInternalError("stored user failed response validation", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	s.publish(ctx, event.Created, user.ID, resp)
	return resp, nil
}

// Get retrieves a user by its path id
func (s *UserService) Get(ctx context.Context, idStr string) (resp *dto.UserResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Get")
	defer span.End()
	defer func() { s.finish(ctx, span, "get", err) }()

	span.SetAttributes(
		attribute.String("operation", "get_user"),
		attribute.String("user.id", idStr),
	)

	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *UserService) get(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := dto.NewUserResponse(user)
	if err != nil {
		return nil, errors.NewInternalError("stored user failed response validation", err)
	}
	return resp, nil
}

// load fetches the stored row and turns absence into USER_NOT_FOUND
func (s *UserService) load(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to get user")
	}
	if user == nil {
		return nil, errors.ErrUserNotFound.WithContext("id", id.String())
	}
	return user, nil
}

// List returns one page of users
func (s *UserService) List(ctx context.Context, req dto.ListRequest) (resp *dto.PageResponse[*dto.UserResponse], err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.List")
	defer span.End()
	defer func() { s.finish(ctx, span, "list", err) }()

	span.SetAttributes(
		attribute.String("operation", "list_users"),
		attribute.Int("page", req.Page),
		attribute.Int("size", req.Size),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	page, err := s.repo.ListPage(ctx, req.Params())
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to list users")
	}

	resp, err = dto.NewPageResponse(page, dto.NewUserResponse)
	if err != nil {
		return nil, errors.NewInternalError("stored user failed response validation", err)
	}

	telemetry.Log(ctx, telemetry.LevelInfo, "Users fetched successfully", nil,
		semconv.HTTPRoute("/users"),
		attribute.String("operation", "list"),
		attribute.Int("users.count", len(resp.Items)),
		attribute.Int64("total.count", resp.Total),
	)
	return resp, nil
}

// Update applies a partial update and returns the row as stored afterwards
func (s *UserService) Update(ctx context.Context, idStr string, req dto.UpdateUserRequest) (resp *dto.UserResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Update")
	defer span.End()
	defer func() { s.finish(ctx, span, "update", err) }()

	span.SetAttributes(
		attribute.String("operation", "update_user"),
		attribute.String("user.id", idStr),
	)

	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.repo.UpdatePartial(ctx, id, req.Patch())
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to update user")
	}
	if n == 0 {
		return nil, errors.ErrUserNotFound.WithContext("id", id.String())
	}

	resp, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.Updated, id, resp)
	return resp, nil
}

// Delete removes a user and, through the store, the user's tasks.
// A second delete of the same id is USER_NOT_FOUND.
func (s *UserService) Delete(ctx context.Context, idStr string) (deleted uuid.UUID, err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Delete")
	defer span.End()
	defer func() { s.finish(ctx, span, "delete", err) }()

	span.SetAttributes(
		attribute.String("operation", "delete_user"),
		attribute.String("user.id", idStr),
	)

	id, err := parseID(idStr)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return uuid.Nil, err
	}

	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return uuid.Nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to delete user")
	}
	if n == 0 {
		// removed by a concurrent request between the check and the delete
		return uuid.Nil, errors.ErrUserNotFound.WithContext("id", id.String())
	}

	s.publish(ctx, event.Deleted, id, nil)
	return id, nil
}

// GetUserTasks returns the user's tasks without the redundant owner id
func (s *UserService) GetUserTasks(ctx context.Context, idStr string) (resp *dto.UserTasksResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetUserTasks")
	defer span.End()
	defer func() { s.finish(ctx, span, "get_tasks", err) }()

	span.SetAttributes(
		attribute.String("operation", "get_user_tasks"),
		attribute.String("user.id", idStr),
	)

	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrUserAlreadyExists, "failed to list user tasks")
	}

	resp, err = dto.NewUserTasksResponse(id, tasks)
	if err != nil {
		return nil, errors.NewInternalError("stored task failed response validation", err)
	}
	span.SetAttributes(attribute.Int("tasks.count", len(resp.Tasks)))
	return resp, nil
}
