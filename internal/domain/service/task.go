package service

import (
	"context"

	"github.com/google/uuid"

	"task-api/internal/application/dto"
)

// TaskService defines the interface for task-related operations
type TaskService interface {
	Create(ctx context.Context, req dto.CreateTaskRequest) (*dto.TaskResponse, error)
	Get(ctx context.Context, id string) (*dto.TaskResponse, error)
	List(ctx context.Context, req dto.ListRequest) (*dto.PageResponse[*dto.TaskResponse], error)
	Update(ctx context.Context, id string, req dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, id string) (uuid.UUID, error)
}
