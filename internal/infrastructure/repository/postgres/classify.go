package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"task-api/internal/domain/repository"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var constraintFields = map[string]string{
	constraintUsername: "username",
	constraintEmail:    "email",
	constraintTaskUser: "userId",
}

// wrapError turns a driver error into a ConstraintViolationError or a
// StorageError. It does not decide what the caller sees; the service does.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &repository.ConstraintViolationError{
				Kind:       repository.ConstraintUnique,
				Constraint: pgErr.ConstraintName,
				Field:      constraintFields[pgErr.ConstraintName],
				Err:        err,
			}
		case pgForeignKeyViolation:
			return &repository.ConstraintViolationError{
				Kind:       repository.ConstraintForeignKey,
				Constraint: pgErr.ConstraintName,
				Field:      constraintFields[pgErr.ConstraintName],
				Err:        err,
			}
		}
	}

	// Reached when the dialector runs with TranslateError enabled
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &repository.ConstraintViolationError{Kind: repository.ConstraintUnique, Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &repository.ConstraintViolationError{Kind: repository.ConstraintForeignKey, Field: "userId", Err: err}
	}

	return repository.NewStorageError(op, err)
}
