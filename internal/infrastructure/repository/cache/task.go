package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

type cachedTask struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	UserID      uuid.UUID  `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// TaskRepository caches GetByID results of another TaskRepository
type TaskRepository struct {
	inner repository.TaskRepository
	kv    KV
	ttl   time.Duration
}

// NewTaskRepository wraps inner with a read-through cache
func NewTaskRepository(inner repository.TaskRepository, kv KV, ttl time.Duration) *TaskRepository {
	return &TaskRepository{inner: inner, kv: kv, ttl: ttl}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) Insert(ctx context.Context, task *entity.Task) error {
	return r.inner.Insert(ctx, task)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var c cachedTask
	if readThrough(ctx, r.kv, taskKey(id), &c) {
		return &entity.Task{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			UserID:      c.UserID,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}, nil
	}

	version, canFill := fillVersion(ctx, r.kv, taskKey(id))
	task, err := r.inner.GetByID(ctx, id)
	if err != nil || task == nil || !canFill {
		return task, err
	}
	fill(ctx, r.kv, taskKey(id), version, cachedTask{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}, r.ttl)
	return task, nil
}

func (r *TaskRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.Task], error) {
	return r.inner.ListPage(ctx, params)
}

func (r *TaskRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.TaskPatch) (int64, error) {
	n, err := r.inner.UpdatePartial(ctx, id, patch)
	if err == nil && n > 0 {
		invalidate(ctx, r.kv, taskKey(id))
	}
	return n, err
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := r.inner.Delete(ctx, id)
	if err == nil && n > 0 {
		invalidate(ctx, r.kv, taskKey(id))
	}
	return n, err
}
