package dto

import (
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
)

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=6,max=30"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=30,password"`
}

// Validate validates the CreateUserRequest
func (r *CreateUserRequest) Validate() error {
	return ValidateStruct(r)
}

// UpdateUserRequest represents a partial user update. Nil fields are left
// untouched; the password cannot be changed here.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitnil,min=6,max=30"`
	Email    *string `json:"email,omitempty" validate:"omitnil,email,max=320"`
}

// Validate validates the UpdateUserRequest
func (r *UpdateUserRequest) Validate() error {
	return ValidateStruct(r)
}

// Patch converts the request into the store's partial update
func (r *UpdateUserRequest) Patch() entity.UserPatch {
	return entity.UserPatch{Username: r.Username, Email: r.Email}
}

// UserResponse represents the response when returning user data.
// It never carries the password.
type UserResponse struct {
	UserID    uuid.UUID  `json:"userId" validate:"required"`
	Username  string     `json:"username" validate:"required,max=30"`
	Email     string     `json:"email" validate:"required,email"`
	CreatedAt time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// NewUserResponse projects a stored user into the response shape and
// re-validates it.
func NewUserResponse(user *entity.User) (*UserResponse, error) {
	resp := &UserResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if err := ValidateStruct(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UserTasksResponse lists the tasks owned by one user
type UserTasksResponse struct {
	UserID uuid.UUID                  `json:"userId" validate:"required"`
	Tasks  []*TaskWithoutUserResponse `json:"tasks" validate:"dive"`
}

// NewUserTasksResponse projects a user's tasks, dropping the redundant userId
func NewUserTasksResponse(userID uuid.UUID, tasks []entity.Task) (*UserTasksResponse, error) {
	resp := &UserTasksResponse{
		UserID: userID,
		Tasks:  make([]*TaskWithoutUserResponse, 0, len(tasks)),
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, newTaskWithoutUserResponse(&tasks[i]))
	}
	if err := ValidateStruct(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
