package entity

import (
	"time"

	"github.com/google/uuid"
)

// Task is a stored task row. Every task belongs to exactly one user.
type Task struct {
	ID          uuid.UUID
	Name        string
	Description string
	UserID      uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// NewTask builds a task row ready for insertion
func NewTask(name, description string, userID uuid.UUID) *Task {
	return &Task{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		UserID:      userID,
	}
}

// TaskPatch lists the task columns a partial update may touch
type TaskPatch struct {
	Name        *string
	Description *string
}

// IsEmpty reports whether the patch carries no field
func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}
