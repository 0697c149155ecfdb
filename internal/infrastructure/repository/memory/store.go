package memory

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

// Store holds users and tasks behind one lock so that uniqueness, the
// task->user reference and delete cascades behave like the relational store.
type Store struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]entity.User
	tasks  map[uuid.UUID]entity.Task
	now    func() time.Time
	tracer trace.Tracer
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		users:  make(map[uuid.UUID]entity.User),
		tasks:  make(map[uuid.UUID]entity.Task),
		now:    func() time.Time { return time.Now().UTC() },
		tracer: tracenoop.NewTracerProvider().Tracer("memory-repository"),
	}
}

// WithTracer sets the tracer for the store
func (s *Store) WithTracer(tracer trace.Tracer) *Store {
	s.tracer = tracer
	return s
}

// WithClock replaces the time source; tests use it to force equal timestamps
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Users returns a UserRepository backed by the store
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// Tasks returns a TaskRepository backed by the store
func (s *Store) Tasks() *TaskRepository {
	return &TaskRepository{store: s}
}

func (s *Store) startSpan(ctx context.Context, name, op, collection string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "memory"),
		attribute.String("db.operation", op),
		attribute.String("db.collection", collection),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

var errCanceled = errors.New("memory store: context done")

func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return repository.NewStorageError(op, errors.Join(errCanceled, err))
	}
	return nil
}

// byCreation orders rows the same way the SQL adapter does:
// created_at ascending, then primary key ascending.
func byCreation(aCreated, bCreated time.Time, aID, bID uuid.UUID) int {
	if c := aCreated.Compare(bCreated); c != 0 {
		return c
	}
	return bytes.Compare(aID[:], bID[:])
}

func paginate[T any](rows []T, params entity.PageParams) []T {
	offset := params.Offset()
	if offset >= int64(len(rows)) {
		return []T{}
	}
	start := int(offset)
	end := start + params.Size
	if params.Size <= 0 || end > len(rows) {
		end = len(rows)
	}
	return slices.Clone(rows[start:end])
}

func sortUsers(users []entity.User) {
	slices.SortFunc(users, func(a, b entity.User) int {
		return byCreation(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
}

func sortTasks(tasks []entity.Task) {
	slices.SortFunc(tasks, func(a, b entity.Task) int {
		return byCreation(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
}

// uniqueUser reports the first unique rule candidate would break, ignoring
// the row with id skip. Caller holds the lock.
func (s *Store) uniqueUser(username, email string, skip uuid.UUID) *repository.ConstraintViolationError {
	for id, u := range s.users {
		if id == skip {
			continue
		}
		if username != "" && u.Username == username {
			return &repository.ConstraintViolationError{
				Kind:       repository.ConstraintUnique,
				Constraint: "idx_users_username",
				Field:      "username",
				Err:        errors.New("duplicate username"),
			}
		}
		if email != "" && u.Email == email {
			return &repository.ConstraintViolationError{
				Kind:       repository.ConstraintUnique,
				Constraint: "idx_users_email",
				Field:      "email",
				Err:        errors.New("duplicate email"),
			}
		}
	}
	return nil
}
