package repository

import (
	"context"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
)

// TaskRepository defines the persistence operations for tasks
type TaskRepository interface {
	Insert(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.Task], error)
	UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.TaskPatch) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}
