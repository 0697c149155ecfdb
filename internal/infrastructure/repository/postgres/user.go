package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

// UserRepository implements repository.UserRepository on top of GORM.
// Every method is a single statement (or a read-only transaction for
// ListPage) bound to the request context.
type UserRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB, tracer trace.Tracer) *UserRepository {
	return &UserRepository{db: db, tracer: tracer}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) startSpan(ctx context.Context, name, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.collection", "users"),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

// Insert creates a new user in the database.
func (r *UserRepository) Insert(ctx context.Context, user *entity.User) error {
	ctx, span := r.startSpan(ctx, "UserRepository.Insert", "INSERT", attribute.String("user.id", user.ID.String()))
	defer span.End()

	model := NewUserModelFromEntity(user)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		span.RecordError(err)
		return wrapError("insert user", err)
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID from the database.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	ctx, span := r.startSpan(ctx, "UserRepository.GetByID", "SELECT", attribute.String("user.id", id.String()))
	defer span.End()

	var model UserModel
	err := r.db.WithContext(ctx).Where("user_id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetAttributes(attribute.Bool("db.found", false))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, wrapError("get user", err)
	}
	return model.ToEntity(), nil
}

// ListPage retrieves one page of users and the total count.
func (r *UserRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.User], error) {
	ctx, span := r.startSpan(ctx, "UserRepository.ListPage", "SELECT",
		attribute.Int("page", params.Page),
		attribute.Int("size", params.Size),
	)
	defer span.End()

	var (
		models []UserModel
		total  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&UserModel{}).Count(&total).Error; err != nil {
			return err
		}
		// past the last row; an oversized OFFSET would be dropped by gorm
		if params.Offset() >= total {
			return nil
		}
		return tx.Order("created_at ASC").Order("user_id ASC").
			Limit(params.Size).Offset(int(params.Offset())).
			Find(&models).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapError("list users", err)
	}

	users := make([]entity.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].ToEntity())
	}
	span.SetAttributes(attribute.Int("users.count", len(users)), attribute.Int64("users.total", total))
	return entity.NewPage(users, total, params), nil
}

// UpdatePartial updates only the fields present in patch.
func (r *UserRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.UserPatch) (int64, error) {
	ctx, span := r.startSpan(ctx, "UserRepository.UpdatePartial", "UPDATE", attribute.String("user.id", id.String()))
	defer span.End()

	updates := map[string]interface{}{"updated_at": r.db.NowFunc()}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Email != nil {
		updates["email"] = entity.NormalizeEmail(*patch.Email)
	}

	res := r.db.WithContext(ctx).Model(&UserModel{}).Where("user_id = ?", id).Updates(updates)
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, wrapError("update user", res.Error)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", res.RowsAffected))
	return res.RowsAffected, nil
}

// Delete removes a user by ID. Tasks go with it through ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, span := r.startSpan(ctx, "UserRepository.Delete", "DELETE", attribute.String("user.id", id.String()))
	defer span.End()

	res := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&UserModel{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, wrapError("delete user", res.Error)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", res.RowsAffected))
	return res.RowsAffected, nil
}

// ListTasks retrieves the tasks of one user with an explicit secondary query.
func (r *UserRepository) ListTasks(ctx context.Context, userID uuid.UUID) ([]entity.Task, error) {
	ctx, span := r.startSpan(ctx, "UserRepository.ListTasks", "SELECT", attribute.String("user.id", userID.String()))
	defer span.End()

	var models []TaskModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("task_id ASC").
		Find(&models).Error
	if err != nil {
		span.RecordError(err)
		return nil, wrapError("list user tasks", err)
	}

	tasks := make([]entity.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, *models[i].ToEntity())
	}
	return tasks, nil
}
