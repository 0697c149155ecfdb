package repository

import (
	"errors"
	"fmt"
)

// ConstraintKind tells which storage rule was broken
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
)

// ConstraintViolationError is returned by adapters when the store rejects a
// write because of a uniqueness or referential rule.
type ConstraintViolationError struct {
	Kind ConstraintKind
	// Constraint is the store's constraint name when known, e.g. "idx_users_email"
	Constraint string
	// Field is the external field name the constraint guards, when known
	Field string
	Err   error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

// StorageError wraps any other backing-store failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failing operation name
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// AsConstraintViolation extracts a constraint violation from err, if any
func AsConstraintViolation(err error) (*ConstraintViolationError, bool) {
	var cv *ConstraintViolationError
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}
