package service

import (
	"context"

	"github.com/google/uuid"

	"task-api/internal/application/dto"
)

// UserService defines the interface for user-related operations
type UserService interface {
	// Create creates a new user
	Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*dto.UserResponse, error)

	// List returns one page of users
	List(ctx context.Context, req dto.ListRequest) (*dto.PageResponse[*dto.UserResponse], error)

	// Update applies a partial update to an existing user
	Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error)

	// Delete removes a user by ID and returns the removed id
	Delete(ctx context.Context, id string) (uuid.UUID, error)

	// GetUserTasks lists the tasks owned by a user
	GetUserTasks(ctx context.Context, id string) (*dto.UserTasksResponse, error)
}
