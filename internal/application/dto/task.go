package dto

import (
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
)

// CreateTaskRequest represents the request to create a task. Description
// must be present in the body but may be the empty string.
type CreateTaskRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=36"`
	Description *string `json:"description" validate:"required,max=256"`
	UserID      string  `json:"userId" validate:"required,uuid"`
}

// Validate validates the CreateTaskRequest
func (r *CreateTaskRequest) Validate() error {
	return ValidateStruct(r)
}

// DescriptionText returns the description, empty when absent
func (r *CreateTaskRequest) DescriptionText() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// OwnerID returns the parsed userId. Only meaningful after Validate.
func (r *CreateTaskRequest) OwnerID() uuid.UUID {
	id, _ := uuid.Parse(r.UserID)
	return id
}

// UpdateTaskRequest represents a partial task update; the owner is fixed
type UpdateTaskRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=3,max=36"`
	Description *string `json:"description,omitempty" validate:"omitnil,max=256"`
}

// Validate validates the UpdateTaskRequest
func (r *UpdateTaskRequest) Validate() error {
	return ValidateStruct(r)
}

// Patch converts the request into the store's partial update
func (r *UpdateTaskRequest) Patch() entity.TaskPatch {
	return entity.TaskPatch{Name: r.Name, Description: r.Description}
}

// TaskResponse represents the response when returning task data
type TaskResponse struct {
	TaskID      uuid.UUID  `json:"taskId" validate:"required"`
	Name        string     `json:"name" validate:"required,max=36"`
	Description string     `json:"description" validate:"max=256"`
	UserID      uuid.UUID  `json:"userId" validate:"required"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewTaskResponse projects a stored task into the response shape and
// re-validates it.
func NewTaskResponse(task *entity.Task) (*TaskResponse, error) {
	resp := &TaskResponse{
		TaskID:      task.ID,
		Name:        task.Name,
		Description: task.Description,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if err := ValidateStruct(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// TaskWithoutUserResponse is TaskResponse minus the owner, used when the
// owner is already known from the enclosing shape.
type TaskWithoutUserResponse struct {
	TaskID      uuid.UUID  `json:"taskId" validate:"required"`
	Name        string     `json:"name" validate:"required,max=36"`
	Description string     `json:"description" validate:"max=256"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func newTaskWithoutUserResponse(task *entity.Task) *TaskWithoutUserResponse {
	return &TaskWithoutUserResponse{
		TaskID:      task.ID,
		Name:        task.Name,
		Description: task.Description,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
