package postgres

import (
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
)

// Constraint names created by AutoMigrate; the adapter uses them to report
// which field a violation concerns.
const (
	constraintUsername = "idx_users_username"
	constraintEmail    = "idx_users_email"
	constraintTaskUser = "fk_users_tasks"
)

// UserModel represents the GORM model for users table
type UserModel struct {
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Username  string     `gorm:"column:username;size:30;not null;uniqueIndex:idx_users_username"`
	Email     string     `gorm:"column:email;size:320;not null;uniqueIndex:idx_users_email"`
	Password  string     `gorm:"column:password;size:255;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`

	// Only declared so AutoMigrate creates the foreign key; never preloaded.
	Tasks []TaskModel `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// TaskModel represents the GORM model for tasks table
type TaskModel struct {
	TaskID      uuid.UUID  `gorm:"column:task_id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;size:36;not null"`
	Description string     `gorm:"column:description;size:256;not null;default:''"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt   *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
}

// TableName specifies the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToEntity converts GORM model to domain entity
func (m *UserModel) ToEntity() *entity.User {
	return &entity.User{
		ID:           m.UserID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.Password,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// NewUserModelFromEntity creates a new UserModel from domain entity
func NewUserModelFromEntity(user *entity.User) *UserModel {
	return &UserModel{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToEntity converts GORM model to domain entity
func (m *TaskModel) ToEntity() *entity.Task {
	return &entity.Task{
		ID:          m.TaskID,
		Name:        m.Name,
		Description: m.Description,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// NewTaskModelFromEntity creates a new TaskModel from domain entity
func NewTaskModelFromEntity(task *entity.Task) *TaskModel {
	return &TaskModel{
		TaskID:      task.ID,
		Name:        task.Name,
		Description: task.Description,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// Models lists every model AutoMigrate must create, parents first
func Models() []interface{} {
	return []interface{}{&UserModel{}, &TaskModel{}}
}
