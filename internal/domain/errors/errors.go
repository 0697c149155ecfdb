package errors

import (
	"errors"
	"fmt"
	"maps"
)

// ErrorCode represents different types of domain errors
type ErrorCode string

const (
	// Entity related errors
	ErrCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrCodeTaskNotFound      ErrorCode = "TASK_NOT_FOUND"
	ErrCodeUserAlreadyExists ErrorCode = "USER_ALREADY_EXISTS"
	ErrCodeTaskAlreadyExists ErrorCode = "TASK_ALREADY_EXISTS"

	// Validation errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"

	// Application errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Kind is the caller-facing class of a domain error
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// DomainError represents a domain-specific error with context
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Fields holds every violated constraint per external field name
	Fields  map[string][]string
	Context map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Kind classifies the error code into the taxonomy exposed to callers
func (e *DomainError) Kind() Kind {
	switch e.Code {
	case ErrCodeValidationFailed, ErrCodeInvalidID:
		return KindValidation
	case ErrCodeUserNotFound, ErrCodeTaskNotFound:
		return KindNotFound
	case ErrCodeUserAlreadyExists, ErrCodeTaskAlreadyExists:
		return KindConflict
	default:
		return KindInternal
	}
}

// WithContext returns a copy of the error carrying an extra context entry.
// The receiver is left untouched so shared sentinels stay immutable.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	maps.Copy(cp.Context, e.Context)
	cp.Context[key] = value
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewDomainErrorWithCause creates a new domain error with an underlying cause
func NewDomainErrorWithCause(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewValidationError creates a validation error listing every failed field
func NewValidationError(fields map[string][]string) *DomainError {
	err := NewDomainError(ErrCodeValidationFailed, "request validation failed")
	err.Fields = fields
	return err
}

// NewInternalError wraps an unexpected failure. The cause is kept for logging.
func NewInternalError(message string, cause error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeInternalError, message, cause)
}

// Predefined domain errors
var (
	ErrUserNotFound      = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrTaskNotFound      = NewDomainError(ErrCodeTaskNotFound, "Task not found")
	ErrUserAlreadyExists = NewDomainError(ErrCodeUserAlreadyExists, "user already exists")
	ErrTaskAlreadyExists = NewDomainError(ErrCodeTaskAlreadyExists, "task already exists")
	ErrValidationFailed  = NewDomainError(ErrCodeValidationFailed, "validation failed")
	ErrInvalidID         = NewDomainError(ErrCodeInvalidID, "invalid ID")
	ErrInternalError     = NewDomainError(ErrCodeInternalError, "internal error")
)

// KindOf returns the taxonomy class of err; anything that is not a
// DomainError is internal.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind()
	}
	return KindInternal
}

// IsNotFound checks if the error is a user or task not found error
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsConflict checks if the error is a uniqueness conflict
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return err != nil && KindOf(err) == KindInternal
}
