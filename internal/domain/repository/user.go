package repository

import (
	"context"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
)

// UserRepository defines the persistence operations for users. Adapters
// return raw outcomes; classification into the domain taxonomy happens in
// the service layer.
type UserRepository interface {
	// Insert stores a new user and fills the server-assigned timestamps
	Insert(ctx context.Context, user *entity.User) error

	// GetByID retrieves a user by ID. It returns nil, nil when no row matches.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// ListPage returns one page of users ordered by created_at, then id
	ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.User], error)

	// UpdatePartial applies only the fields present in patch and returns the
	// number of rows affected (0 when id does not exist)
	UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.UserPatch) (int64, error)

	// Delete removes a user by ID and returns the number of rows affected
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// ListTasks returns the tasks owned by a user, ordered like ListPage
	ListTasks(ctx context.Context, userID uuid.UUID) ([]entity.Task, error)
}
