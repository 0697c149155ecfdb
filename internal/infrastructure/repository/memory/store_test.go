package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"task-api/internal/domain/entity"
	"task-api/internal/domain/repository"
)

func strPtr(s string) *string { return &s }

func mustInsertUser(t *testing.T, repo *UserRepository, username, email string) *entity.User {
	t.Helper()
	u := entity.NewUser(username, email, "hash")
	if err := repo.Insert(context.Background(), u); err != nil {
		t.Fatalf("Insert(%s): %v", username, err)
	}
	return u
}

func TestUserInsert_UniqueUsernameAndEmail(t *testing.T) {
	users := NewStore().Users()
	mustInsertUser(t, users, "alice", "alice@example.com")

	cases := []struct {
		name, username, email, field string
	}{
		{"same username", "alice", "other@example.com", "username"},
		{"same email different case", "bob", "ALICE@example.com", "email"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := users.Insert(context.Background(), entity.NewUser(c.username, c.email, "hash"))
			cv, ok := repository.AsConstraintViolation(err)
			if !ok {
				t.Fatalf("expected constraint violation, got %v", err)
			}
			if cv.Kind != repository.ConstraintUnique || cv.Field != c.field {
				t.Fatalf("got kind=%s field=%s, want unique/%s", cv.Kind, cv.Field, c.field)
			}
		})
	}
}

func TestUserInsert_SetsCreatedAtNotUpdatedAt(t *testing.T) {
	users := NewStore().Users()
	u := mustInsertUser(t, users, "alice", "alice@example.com")
	if u.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not set")
	}
	if u.UpdatedAt != nil {
		t.Fatalf("UpdatedAt must be absent after insert")
	}
}

func TestGetByID_AbsentIsNilNil(t *testing.T) {
	store := NewStore()
	u, err := store.Users().GetByID(context.Background(), uuid.New())
	if err != nil || u != nil {
		t.Fatalf("GetByID = %v, %v; want nil, nil", u, err)
	}
	task, err := store.Tasks().GetByID(context.Background(), uuid.New())
	if err != nil || task != nil {
		t.Fatalf("GetByID = %v, %v; want nil, nil", task, err)
	}
}

func TestListPage_OrderAndTotals(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore().WithClock(func() time.Time { return fixed })
	users := store.Users()

	for i := 0; i < 5; i++ {
		mustInsertUser(t, users, "user"+string(rune('a'+i)), "u"+string(rune('a'+i))+"@example.com")
	}

	first, err := users.ListPage(context.Background(), entity.PageParams{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if first.Total != 5 || first.Pages != 3 || len(first.Items) != 2 {
		t.Fatalf("unexpected first page: total=%d pages=%d items=%d", first.Total, first.Pages, len(first.Items))
	}

	// Equal timestamps fall back to id order, so pages never overlap.
	seen := map[uuid.UUID]bool{}
	var prev uuid.UUID
	for page := 1; page <= 3; page++ {
		p, err := users.ListPage(context.Background(), entity.PageParams{Page: page, Size: 2})
		if err != nil {
			t.Fatalf("ListPage(%d): %v", page, err)
		}
		for _, u := range p.Items {
			if seen[u.ID] {
				t.Fatalf("user %s returned twice", u.ID)
			}
			if prev != uuid.Nil && prev.String() > u.ID.String() {
				t.Fatalf("ids out of order: %s before %s", prev, u.ID)
			}
			seen[u.ID] = true
			prev = u.ID
		}
	}
	if len(seen) != 5 {
		t.Fatalf("walked %d users, want 5", len(seen))
	}

	beyond, err := users.ListPage(context.Background(), entity.PageParams{Page: 9, Size: 2})
	if err != nil {
		t.Fatalf("ListPage beyond: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.Total != 5 {
		t.Fatalf("page past end: items=%d total=%d", len(beyond.Items), beyond.Total)
	}
}

func TestUserUpdatePartial(t *testing.T) {
	users := NewStore().Users()
	alice := mustInsertUser(t, users, "alice", "alice@example.com")
	mustInsertUser(t, users, "bob", "bob@example.com")
	ctx := context.Background()

	n, err := users.UpdatePartial(ctx, uuid.New(), entity.UserPatch{Username: strPtr("x")})
	if err != nil || n != 0 {
		t.Fatalf("missing row: n=%d err=%v", n, err)
	}

	if _, err := users.UpdatePartial(ctx, alice.ID, entity.UserPatch{Email: strPtr("BOB@example.com")}); err == nil {
		t.Fatalf("expected unique violation on email")
	}

	// Keeping the own username is not a conflict.
	n, err = users.UpdatePartial(ctx, alice.ID, entity.UserPatch{Username: strPtr("alice")})
	if err != nil || n != 1 {
		t.Fatalf("self update: n=%d err=%v", n, err)
	}

	n, err = users.UpdatePartial(ctx, alice.ID, entity.UserPatch{Email: strPtr("new@example.com")})
	if err != nil || n != 1 {
		t.Fatalf("UpdatePartial: n=%d err=%v", n, err)
	}
	got, _ := users.GetByID(ctx, alice.ID)
	if got.Email != "new@example.com" || got.Username != "alice" || got.UpdatedAt == nil {
		t.Fatalf("unexpected user after update: %+v", got)
	}
}

func TestTaskInsert_RequiresExistingUser(t *testing.T) {
	store := NewStore()
	err := store.Tasks().Insert(context.Background(), entity.NewTask("n", "d", uuid.New()))
	cv, ok := repository.AsConstraintViolation(err)
	if !ok || cv.Kind != repository.ConstraintForeignKey || cv.Field != "userId" {
		t.Fatalf("expected foreign key violation on userId, got %v", err)
	}
}

func TestUserDelete_CascadesTasks(t *testing.T) {
	store := NewStore()
	users, tasks := store.Users(), store.Tasks()
	ctx := context.Background()

	alice := mustInsertUser(t, users, "alice", "alice@example.com")
	bob := mustInsertUser(t, users, "bob", "bob@example.com")
	for _, owner := range []uuid.UUID{alice.ID, alice.ID, bob.ID} {
		if err := tasks.Insert(ctx, entity.NewTask("task", "", owner)); err != nil {
			t.Fatalf("Insert task: %v", err)
		}
	}

	owned, err := users.ListTasks(ctx, alice.ID)
	if err != nil || len(owned) != 2 {
		t.Fatalf("ListTasks = %d, %v; want 2", len(owned), err)
	}

	n, err := users.Delete(ctx, alice.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete: n=%d err=%v", n, err)
	}
	for _, task := range owned {
		if got, _ := tasks.GetByID(ctx, task.ID); got != nil {
			t.Fatalf("task %s survived owner deletion", task.ID)
		}
	}

	page, _ := tasks.ListPage(ctx, entity.PageParams{Page: 1, Size: 50})
	if page.Total != 1 {
		t.Fatalf("remaining tasks = %d, want 1", page.Total)
	}

	n, err = users.Delete(ctx, alice.ID)
	if err != nil || n != 0 {
		t.Fatalf("second Delete: n=%d err=%v", n, err)
	}
}

func TestCanceledContextIsStorageError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore().Users().GetByID(ctx, uuid.New())
	var se *repository.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}
