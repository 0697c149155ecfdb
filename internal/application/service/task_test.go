package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"task-api/internal/application/dto"
	domainErrors "task-api/internal/domain/errors"
	"task-api/internal/infrastructure/telemetry"
)

func TestTaskCreate(t *testing.T) {
	users, tasks, _, _ := newServices(t)
	ctx := context.Background()

	owner, err := users.Create(ctx, validUser())
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	task, err := tasks.Create(ctx, dto.CreateTaskRequest{
		Name:        "Test name",
		Description: strPtr("Test description"),
		UserID:      owner.UserID.String(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.TaskID == uuid.Nil || task.UserID != owner.UserID || task.UpdatedAt != nil {
		t.Fatalf("unexpected task: %+v", task)
	}

	got, err := tasks.Get(ctx, task.TaskID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Test name" || got.Description != "Test description" {
		t.Fatalf("Get = %+v", got)
	}
}

func TestTaskCreate_UnknownOwnerIsValidation(t *testing.T) {
	_, tasks, _, _ := newServices(t)

	_, err := tasks.Create(context.Background(), dto.CreateTaskRequest{Name: "Test name", Description: strPtr(""), UserID: uuid.NewString()})
	if !domainErrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var de *domainErrors.DomainError
	if !errors.As(err, &de) || len(de.Fields["userId"]) == 0 {
		t.Fatalf("error should name userId, got %+v", de)
	}
}

func TestTaskCreate_DescriptionMustBePresent(t *testing.T) {
	users, tasks, _, _ := newServices(t)
	ctx := context.Background()
	owner, _ := users.Create(ctx, validUser())

	_, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: "Test name", UserID: owner.UserID.String()})
	var de *domainErrors.DomainError
	if !errors.As(err, &de) || len(de.Fields["description"]) == 0 {
		t.Fatalf("expected validation error on description, got %v", err)
	}

	task, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: "Test name", Description: strPtr(""), UserID: owner.UserID.String()})
	if err != nil {
		t.Fatalf("empty description: %v", err)
	}
	if task.Description != "" {
		t.Fatalf("Description = %q", task.Description)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	users, tasks, _, _ := newServices(t)
	ctx := context.Background()

	owner, _ := users.Create(ctx, validUser())
	task, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: "Test name", Description: strPtr("d"), UserID: owner.UserID.String()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := task.TaskID.String()

	updated, err := tasks.Update(ctx, id, dto.UpdateTaskRequest{Description: strPtr("")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "" || updated.Name != "Test name" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := tasks.Update(ctx, id, dto.UpdateTaskRequest{Name: strPtr("ab")}); !domainErrors.IsValidationError(err) {
		t.Fatalf("short name: expected validation error, got %v", err)
	}

	deleted, err := tasks.Delete(ctx, id)
	if err != nil || deleted != task.TaskID {
		t.Fatalf("Delete = %s, %v", deleted, err)
	}
	if _, err := tasks.Delete(ctx, id); !domainErrors.IsNotFound(err) {
		t.Fatalf("second Delete: expected not found, got %v", err)
	}
	if _, err := tasks.Update(ctx, id, dto.UpdateTaskRequest{}); !domainErrors.IsNotFound(err) {
		t.Fatalf("Update after delete: expected not found, got %v", err)
	}
}

func TestTaskList(t *testing.T) {
	users, tasks, _, _ := newServices(t)
	ctx := context.Background()

	owner, _ := users.Create(ctx, validUser())
	for i := 0; i < 3; i++ {
		if _, err := tasks.Create(ctx, dto.CreateTaskRequest{Name: "task " + string(rune('a'+i)), Description: strPtr(""), UserID: owner.UserID.String()}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, err := tasks.List(ctx, dto.ListRequest{Page: 2, Size: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(page.Items) != 1 || page.Page != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := tasks.List(ctx, dto.ListRequest{Page: 0, Size: 2}); !domainErrors.IsValidationError(err) {
		t.Fatalf("page 0: expected validation error, got %v", err)
	}
}

func TestAppService_HealthCheck(t *testing.T) {
	app := NewAppService(telemetry.NewNoop(), "task-api", "v1", "memory",
		Dependency{Name: "store", Check: func(context.Context) error { return nil }},
		Dependency{Name: "redis", Check: func(context.Context) error { return errors.New("down") }},
	)

	report, healthy := app.HealthCheck(context.Background())
	if healthy {
		t.Fatalf("expected unhealthy report")
	}
	checks := report["checks"].(map[string]interface{})
	if checks["store"] != "ok" || checks["redis"] != "unavailable" {
		t.Fatalf("unexpected checks: %v", checks)
	}
}
