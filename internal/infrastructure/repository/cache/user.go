package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

type cachedUser struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// UserRepository caches GetByID results of another UserRepository.
// Writes go straight to the inner repository and invalidate afterwards.
type UserRepository struct {
	inner repository.UserRepository
	kv    KV
	ttl   time.Duration
}

// NewUserRepository wraps inner with a read-through cache
func NewUserRepository(inner repository.UserRepository, kv KV, ttl time.Duration) *UserRepository {
	return &UserRepository{inner: inner, kv: kv, ttl: ttl}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Insert(ctx context.Context, user *entity.User) error {
	return r.inner.Insert(ctx, user)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var c cachedUser
	if readThrough(ctx, r.kv, userKey(id), &c) {
		return &entity.User{
			ID:           c.ID,
			Username:     c.Username,
			Email:        c.Email,
			PasswordHash: c.PasswordHash,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		}, nil
	}

	version, canFill := fillVersion(ctx, r.kv, userKey(id))
	user, err := r.inner.GetByID(ctx, id)
	if err != nil || user == nil || !canFill {
		return user, err
	}
	fill(ctx, r.kv, userKey(id), version, cachedUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}, r.ttl)
	return user, nil
}

func (r *UserRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.User], error) {
	return r.inner.ListPage(ctx, params)
}

func (r *UserRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.UserPatch) (int64, error) {
	n, err := r.inner.UpdatePartial(ctx, id, patch)
	if err == nil && n > 0 {
		invalidate(ctx, r.kv, userKey(id))
	}
	return n, err
}

// Delete also evicts the user's tasks, which the store removes by cascade
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tasks, err := r.inner.ListTasks(ctx, id)
	if err != nil {
		return 0, err
	}

	n, err := r.inner.Delete(ctx, id)
	if err != nil || n == 0 {
		return n, err
	}

	keys := make([]string, 0, len(tasks)+1)
	keys = append(keys, userKey(id))
	for _, t := range tasks {
		keys = append(keys, taskKey(t.ID))
	}
	invalidate(ctx, r.kv, keys...)
	return n, nil
}

func (r *UserRepository) ListTasks(ctx context.Context, userID uuid.UUID) ([]entity.Task, error) {
	return r.inner.ListTasks(ctx, userID)
}
