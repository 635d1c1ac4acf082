package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskflow/assistant/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTask(id, userID, title string) *domain.Task {
	now := time.Now()
	return &domain.Task{
		TaskID:    id,
		UserID:    userID,
		Title:     title,
		Priority:  domain.TaskPriorityMedium,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	task := newTask("t1", "u1", "buy milk")
	task.Description = "two liters"
	task.DueDate = &due
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil || got.Title != "buy milk" || got.Description != "two liters" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("unexpected due date: %v", got.DueDate)
	}
}

func TestGetTaskScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTask("t1", "u1", "mine")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, "t1", "other")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got != nil {
		t.Fatalf("foreign user must not see the task")
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	high := newTask("t1", "u1", "urgent thing")
	high.Priority = domain.TaskPriorityHigh
	completed := newTask("t2", "u1", "finished thing")
	completed.Status = domain.TaskStatusCompleted
	other := newTask("t3", "u2", "not mine")

	for _, task := range []*domain.Task{high, completed, other} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	all, err := s.ListTasks(ctx, "u1", domain.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks for u1, got %d", len(all))
	}

	highOnly, err := s.ListTasks(ctx, "u1", domain.TaskFilter{Priority: domain.TaskPriorityHigh})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(highOnly) != 1 || highOnly[0].TaskID != "t1" {
		t.Fatalf("unexpected priority filter result: %+v", highOnly)
	}

	pending, err := s.ListTasks(ctx, "u1", domain.TaskFilter{Status: domain.TaskStatusPending})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(pending) != 1 || pending[0].TaskID != "t1" {
		t.Fatalf("unexpected status filter result: %+v", pending)
	}
}

func TestSearchTasksByTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTask("t1", "u1", "Buy Milk")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := s.CreateTask(ctx, newTask("t2", "u1", "walk the dog")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	matches, err := s.SearchTasksByTitle(ctx, "u1", "milk")
	if err != nil {
		t.Fatalf("SearchTasksByTitle failed: %v", err)
	}
	if len(matches) != 1 || matches[0].TaskID != "t1" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTask("t1", "u1", "old")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	title := "new"
	status := domain.TaskStatusCompleted
	updated, err := s.UpdateTask(ctx, "t1", "u1", domain.TaskUpdate{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated == nil || updated.Title != "new" || updated.Status != domain.TaskStatusCompleted {
		t.Fatalf("unexpected updated task: %+v", updated)
	}
	if updated.Priority != domain.TaskPriorityMedium {
		t.Fatalf("untouched field changed: %+v", updated)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	s := newTestStore(t)

	title := "x"
	updated, err := s.UpdateTask(context.Background(), "missing", "u1", domain.TaskUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated != nil {
		t.Fatalf("expected nil for missing task")
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTask(ctx, newTask("t1", "u1", "x")); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := s.DeleteTask(ctx, "t1", "other"); err != sql.ErrNoRows {
		t.Fatalf("foreign delete should report no rows, got %v", err)
	}
	if err := s.DeleteTask(ctx, "t1", "u1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := s.DeleteTask(ctx, "t1", "u1"); err != sql.ErrNoRows {
		t.Fatalf("second delete should report no rows, got %v", err)
	}
}
