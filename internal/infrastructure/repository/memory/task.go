package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

var (
	errDuplicateKey = errors.New("duplicate primary key")
	errMissingUser  = errors.New("referenced user does not exist")
)

// TaskRepository implements repository.TaskRepository using in-memory storage
type TaskRepository struct {
	store *Store
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

// Insert stores a new task. The owning user must exist.
func (r *TaskRepository) Insert(ctx context.Context, task *entity.Task) error {
	ctx, span := r.store.startSpan(ctx, "TaskRepository.Insert", "INSERT", "tasks",
		attribute.String("task.id", task.ID.String()),
		attribute.String("user.id", task.UserID.String()),
	)
	defer span.End()

	if err := checkContext(ctx, "insert task"); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.tasks[task.ID]; exists {
		return &repository.ConstraintViolationError{
			Kind:       repository.ConstraintUnique,
			Constraint: "tasks_pkey",
			Err:        errDuplicateKey,
		}
	}
	if _, exists := r.store.users[task.UserID]; !exists {
		err := &repository.ConstraintViolationError{
			Kind:       repository.ConstraintForeignKey,
			Constraint: "fk_users_tasks",
			Field:      "userId",
			Err:        errMissingUser,
		}
		span.RecordError(err)
		return err
	}

	task.CreatedAt = r.store.now()
	task.UpdatedAt = nil
	r.store.tasks[task.ID] = *task
	return nil
}

// GetByID retrieves a task by ID; nil, nil when absent
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	ctx, span := r.store.startSpan(ctx, "TaskRepository.GetByID", "SELECT", "tasks",
		attribute.String("task.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "get task"); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	task, exists := r.store.tasks[id]
	if !exists {
		span.SetAttributes(attribute.Bool("db.found", false))
		return nil, nil
	}
	return &task, nil
}

// ListPage returns one page of tasks ordered by creation time
func (r *TaskRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.Task], error) {
	ctx, span := r.store.startSpan(ctx, "TaskRepository.ListPage", "SELECT", "tasks",
		attribute.Int("page", params.Page),
		attribute.Int("size", params.Size),
	)
	defer span.End()

	if err := checkContext(ctx, "list tasks"); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	all := make([]entity.Task, 0, len(r.store.tasks))
	for _, t := range r.store.tasks {
		all = append(all, t)
	}
	r.store.mu.RUnlock()

	sortTasks(all)
	items := paginate(all, params)
	span.SetAttributes(attribute.Int("tasks.count", len(items)))
	return entity.NewPage(items, int64(len(all)), params), nil
}

// UpdatePartial applies patch and stamps UpdatedAt. Returns 0 when the task
// does not exist.
func (r *TaskRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.TaskPatch) (int64, error) {
	ctx, span := r.store.startSpan(ctx, "TaskRepository.UpdatePartial", "UPDATE", "tasks",
		attribute.String("task.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "update task"); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	task, exists := r.store.tasks[id]
	if !exists {
		return 0, nil
	}
	if patch.Name != nil {
		task.Name = *patch.Name
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	now := r.store.now()
	task.UpdatedAt = &now
	r.store.tasks[id] = task
	return 1, nil
}

// Delete removes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, span := r.store.startSpan(ctx, "TaskRepository.Delete", "DELETE", "tasks",
		attribute.String("task.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "delete task"); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.tasks[id]; !exists {
		return 0, nil
	}
	delete(r.store.tasks, id)
	return 1, nil
}
