package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

// TaskRepository implements repository.TaskRepository on top of GORM.
type TaskRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB, tracer trace.Tracer) *TaskRepository {
	return &TaskRepository{db: db, tracer: tracer}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) startSpan(ctx context.Context, name, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.collection", "tasks"),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

// Insert creates a new task. An unknown user_id surfaces as a foreign key
// constraint violation.
func (r *TaskRepository) Insert(ctx context.Context, task *entity.Task) error {
	ctx, span := r.startSpan(ctx, "TaskRepository.Insert", "INSERT",
		attribute.String("task.id", task.ID.String()),
		attribute.String("user.id", task.UserID.String()),
	)
	defer span.End()

	model := NewTaskModelFromEntity(task)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		span.RecordError(err)
		return wrapError("insert task", err)
	}

	task.CreatedAt = model.CreatedAt
	task.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a task by ID; nil, nil when absent.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	ctx, span := r.startSpan(ctx, "TaskRepository.GetByID", "SELECT", attribute.String("task.id", id.String()))
	defer span.End()

	var model TaskModel
	err := r.db.WithContext(ctx).Where("task_id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetAttributes(attribute.Bool("db.found", false))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, wrapError("get task", err)
	}
	return model.ToEntity(), nil
}

// ListPage retrieves one page of tasks and the total count.
func (r *TaskRepository) ListPage(ctx context.Context, params entity.PageParams) (*entity.Page[entity.Task], error) {
	ctx, span := r.startSpan(ctx, "TaskRepository.ListPage", "SELECT",
		attribute.Int("page", params.Page),
		attribute.Int("size", params.Size),
	)
	defer span.End()

	var (
		models []TaskModel
		total  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&TaskModel{}).Count(&total).Error; err != nil {
			return err
		}
		// past the last row; an oversized OFFSET would be dropped by gorm
		if params.Offset() >= total {
			return nil
		}
		return tx.Order("created_at ASC").Order("task_id ASC").
			Limit(params.Size).Offset(int(params.Offset())).
			Find(&models).Error
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapError("list tasks", err)
	}

	tasks := make([]entity.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, *models[i].ToEntity())
	}
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)), attribute.Int64("tasks.total", total))
	return entity.NewPage(tasks, total, params), nil
}

// UpdatePartial updates only the fields present in patch.
func (r *TaskRepository) UpdatePartial(ctx context.Context, id uuid.UUID, patch entity.TaskPatch) (int64, error) {
	ctx, span := r.startSpan(ctx, "TaskRepository.UpdatePartial", "UPDATE", attribute.String("task.id", id.String()))
	defer span.End()

	updates := map[string]interface{}{"updated_at": r.db.NowFunc()}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	res := r.db.WithContext(ctx).Model(&TaskModel{}).Where("task_id = ?", id).Updates(updates)
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, wrapError("update task", res.Error)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", res.RowsAffected))
	return res.RowsAffected, nil
}

// Delete removes a task by ID.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, span := r.startSpan(ctx, "TaskRepository.Delete", "DELETE", attribute.String("task.id", id.String()))
	defer span.End()

	res := r.db.WithContext(ctx).Where("task_id = ?", id).Delete(&TaskModel{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, wrapError("delete task", res.Error)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", res.RowsAffected))
	return res.RowsAffected, nil
}
