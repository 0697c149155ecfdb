package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/application/dto"
	"task-api/internal/domain/entity"
	"task-api/internal/domain/errors"
	"task-api/internal/domain/event"
	"task-api/internal/domain/repository"
	"task-api/internal/infrastructure/telemetry"
)

// TaskService handles task-related business operations
type TaskService struct {
	recorder
	repo repository.TaskRepository
}

// NewTaskService creates a new TaskService. events may be nil.
func NewTaskService(repo repository.TaskRepository, events event.Publisher, tel *telemetry.Telemetry) *TaskService {
	return &TaskService{
		recorder: recorder{
			entity:    event.EntityTask,
			telemetry: tel,
			tracer:    tel.Tracer,
			events:    events,
		},
		repo: repo,
	}
}

// Create stores a new task. The owner is not looked up beforehand; an
// unknown userId is rejected by the store and reported on that field.
func (s *TaskService) Create(ctx context.Context, req dto.CreateTaskRequest) (resp *dto.TaskResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Create")
	defer span.End()
	defer func() { s.finish(ctx, span, "create", err) }()

	span.SetAttributes(
		attribute.String("operation", "create_task"),
		attribute.String("user.id", req.UserID),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := entity.NewTask(req.Name, req.DescriptionText(), req.OwnerID())
	if err := s.repo.Insert(ctx, task); err != nil {
		return nil, classifyStoreError(err, errors.ErrTaskAlreadyExists, "failed to save task")
	}

	resp, err = dto.NewTaskResponse(task)
	if err != nil {
		return nil, errors.NewInternalError("stored task failed response validation", err)
	}

	span.SetAttributes(attribute.String("task.id", task.ID.String()))
	telemetry.Log(ctx, telemetry.LevelInfo, "Task created successfully", nil,
		attribute.String("operation", "create"),
		attribute.String("task.id", task.ID.String()),
	)
	s.publish(ctx, event.Created, task.ID, resp)
	return resp, nil
}

// Get retrieves a task by its path id
func (s *TaskService) Get(ctx context.Context, idStr string) (resp *dto.TaskResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Get")
	defer span.End()
	defer func() { s.finish(ctx, span, "get", err) }()

	span.SetAttributes(
		attribute.String("operation", "get_task"),
		attribute.String("task.id", idStr),
	)

	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *TaskService) get(ctx context.Context, id uuid.UUID) (*dto.TaskResponse, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := dto.NewTaskResponse(task)
	if err != nil {
		return nil, errors.NewInternalError("stored task failed response validation", err)
	}
	return resp, nil
}

func (s *TaskService) load(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrTaskAlreadyExists, "failed to get task")
	}
	if task == nil {
		return nil, errors.ErrTaskNotFound.WithContext("id", id.String())
	}
	return task, nil
}

// List returns one page of tasks
func (s *TaskService) List(ctx context.Context, req dto.ListRequest) (resp *dto.PageResponse[*dto.TaskResponse], err error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.List")
	defer span.End()
	defer func() { s.finish(ctx, span, "list", err) }()

	span.SetAttributes(
		attribute.String("operation", "list_tasks"),
		attribute.Int("page", req.Page),
		attribute.Int("size", req.Size),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	page, err := s.repo.ListPage(ctx, req.Params())
	if err != nil {
		return nil, classifyStoreError(err, errors.ErrTaskAlreadyExists, "failed to list tasks")
	}

	resp, err = dto.NewPageResponse(page, dto.NewTaskResponse)
	if err != nil {
		return nil, errors.NewInternalError("stored task failed response validation", err)
	}
	return resp, nil
}

// Update applies a partial update and returns the row as stored afterwards
func (s *TaskService) Update(ctx context.Context, idStr string, req dto.UpdateTaskRequest) (resp *dto.TaskResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Update")
	defer span.End()
	defer func() { s.finish(ctx, span, "update", err) }()

	span.SetAttributes(
		attribute.String("operation", "update_task"),
		attribute.String("task.id", idStr),
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
		return nil, classifyStoreError(err, errors.ErrTaskAlreadyExists, "failed to update task")
	}
	if n == 0 {
		return nil, errors.ErrTaskNotFound.WithContext("id", id.String())
	}

	resp, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.Updated, id, resp)
	return resp, nil
}

// Delete removes a task. A second delete of the same id is TASK_NOT_FOUND.
func (s *TaskService) Delete(ctx context.Context, idStr string) (deleted uuid.UUID, err error) {
	ctx, span := s.tracer.Start(ctx, "TaskService.Delete")
	defer span.End()
	defer func() { s.finish(ctx, span, "delete", err) }()

	span.SetAttributes(
		attribute.String("operation", "delete_task"),
		attribute.String("task.id", idStr),
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
		return uuid.Nil, classifyStoreError(err, errors.ErrTaskAlreadyExists, "failed to delete task")
	}
	if n == 0 {
		return uuid.Nil, errors.ErrTaskNotFound.WithContext("id", id.String())
	}

	s.publish(ctx, event.Deleted, id, nil)
	return id, nil
}
