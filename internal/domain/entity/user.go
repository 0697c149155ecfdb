package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a stored user row. Tasks are never loaded implicitly; use
// UserRepository.ListTasks for the relationship.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// NewUser builds a user row ready for insertion. The id is generated here and
// never changes afterwards; timestamps are assigned by the store.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch lists the user columns a partial update may touch. Nil means
// "leave untouched".
type UserPatch struct {
	Username *string
	Email    *string
}

// IsEmpty reports whether the patch carries no field
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil
}
