package memory

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
	"task-api/internal/infrastructure/telemetry"
)

// UserRepository implements repository.UserRepository using in-memory storage
type UserRepository struct {
	store *Store
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Insert stores a new user
func (r *UserRepository) Insert(ctx context.Context, user *entity.User) error {
	ctx, span := r.store.startSpan(ctx, "UserRepository.Insert", "INSERT", "users",
		attribute.String("user.id", user.ID.String()))
	defer span.End()

	if err := checkContext(ctx, "insert user"); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.users[user.ID]; exists {
		return &repository.ConstraintViolationError{
			Kind:       repository.ConstraintUnique,
			Constraint: "users_pkey",
			Err:        errDuplicateKey,
		}
	}
	if v := r.store.uniqueUser(user.Username, user.Email, uuid.Nil); v != nil {
		span.RecordError(v)
		return v
	}

	user.CreatedAt = r.store.now()
	user.UpdatedAt = nil
	r.store.users[user.ID] = *user

	telemetry.Log(ctx, telemetry.LevelDebug, "User created in memory", nil,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.collection", "users"),
		attribute.String("user.id", user.ID.String()),
	)
	return nil
}

// GetByID retrieves a user by ID; nil, nil when absent
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	ctx, span := r.store.startSpan(ctx, "UserRepository.GetByID", "SELECT", "users",
		attribute.String("user.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "get user"); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, exists := r.store.users[id]
	if !exists {
		span.SetAttributes(attribute.Bool("db.found", false))
		return nil, nil
	}
	return &user, nil
}

// ListPage returns one page of users ordered by creation time
func (r *UserRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.User], error) {
	ctx, span := r.store.startSpan(ctx, "UserRepository.ListPage", "SELECT", "users",
		attribute.Int("page", params.Page),
		attribute.Int("size", params.Size),
	)
	defer span.End()

	if err := checkContext(ctx, "list users"); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	all := make([]entity.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		all = append(all, u)
	}
	r.store.mu.RUnlock()

	sortUsers(all)
	items := paginate(all, params)
	span.SetAttributes(attribute.Int("users.count", len(items)))
	return entity.NewPage(items, int64(len(all)), params), nil
}

// UpdatePartial applies patch and stamps UpdatedAt. Returns 0 when the user
// does not exist.
func (r *UserRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.UserPatch) (int64, error) {
	ctx, span := r.store.startSpan(ctx, "UserRepository.UpdatePartial", "UPDATE", "users",
		attribute.String("user.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "update user"); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, exists := r.store.users[id]
	if !exists {
		return 0, nil
	}

	var username, email string
	if patch.Username != nil {
		username = *patch.Username
	}
	if patch.Email != nil {
		email = entity.NormalizeEmail(*patch.Email)
	}
	if v := r.store.uniqueUser(username, email, id); v != nil {
		span.RecordError(v)
		return 0, v
	}

	if patch.Username != nil {
		user.Username = username
	}
	if patch.Email != nil {
		user.Email = email
	}
	now := r.store.now()
	user.UpdatedAt = &now
	r.store.users[id] = user
	return 1, nil
}

// Delete removes a user and every task referencing it
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, span := r.store.startSpan(ctx, "UserRepository.Delete", "DELETE", "users",
		attribute.String("user.id", id.String()))
	defer span.End()

	if err := checkContext(ctx, "delete user"); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.users[id]; !exists {
		return 0, nil
	}
	delete(r.store.users, id)

	cascaded := 0
	for taskID, task := range r.store.tasks {
		if task.UserID == id {
			delete(r.store.tasks, taskID)
			cascaded++
		}
	}

	telemetry.Log(ctx, telemetry.LevelDebug, "User deleted from memory", nil,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.collection", "users"),
		attribute.String("user.id", id.String()),
		attribute.Int("tasks.cascaded", cascaded),
	)
	return 1, nil
}

// ListTasks returns the tasks owned by userID ordered by creation time
func (r *UserRepository) ListTasks(ctx context.Context, userID uuid.UUID) ([]entity.Task, error) {
	ctx, span := r.store.startSpan(ctx, "UserRepository.ListTasks", "SELECT", "tasks",
		attribute.String("user.id", userID.String()))
	defer span.End()

	if err := checkContext(ctx, "list user tasks"); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	tasks := make([]entity.Task, 0)
	for _, t := range r.store.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	r.store.mu.RUnlock()

	sortTasks(tasks)
	return tasks, nil
}
