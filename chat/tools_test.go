package chat

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/taskflow/assistant/domain"
	"github.com/taskflow/assistant/store"
)

// fakeTaskStore is an in-memory TaskStore for tool tests.
type fakeTaskStore struct {
	tasks map[string]*domain.Task
}

var _ store.TaskStore = (*fakeTaskStore)(nil)

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*domain.Task)}
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	copied := *task
	f.tasks[task.TaskID] = &copied
	return nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, taskID, userID string) (*domain.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range f.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (f *fakeTaskStore) SearchTasksByTitle(ctx context.Context, userID, query string) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range f.tasks {
		if task.UserID == userID && strings.Contains(strings.ToLower(task.Title), strings.ToLower(query)) {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, taskID, userID string, update domain.TaskUpdate) (*domain.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	task.UpdatedAt = time.Now()
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, taskID, userID string) error {
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskStore) Close() error { return nil }

func seedTask(f *fakeTaskStore, id, userID, title string, status domain.TaskStatus) {
	f.tasks[id] = &domain.Task{
		TaskID:   id,
		UserID:   userID,
		Title:    title,
		Priority: domain.TaskPriorityMedium,
		Status:   status,
	}
}

func TestCreateTaskTool(t *testing.T) {
	fake := newFakeTaskStore()
	tools := NewTaskTools(fake)
	ctx := context.Background()

	result, err := tools.createTask(ctx, "u1", json.RawMessage(`{"title":"buy milk","priority":"HIGH"}`))
	if err != nil {
		t.Fatalf("createTask failed: %v", err)
	}
	if !strings.Contains(result, "buy milk") || !strings.Contains(result, "HIGH") {
		t.Fatalf("unexpected result: %s", result)
	}

	tasks, _ := fake.ListTasks(ctx, "u1", domain.TaskFilter{})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Status != domain.TaskStatusPending {
		t.Fatalf("new task should be PENDING, got %s", tasks[0].Status)
	}
}

func TestCreateTaskToolDefaultsPriority(t *testing.T) {
	fake := newFakeTaskStore()
	tools := NewTaskTools(fake)

	if _, err := tools.createTask(context.Background(), "u1", json.RawMessage(`{"title":"x","priority":"URGENT"}`)); err != nil {
		t.Fatalf("createTask failed: %v", err)
	}
	tasks, _ := fake.ListTasks(context.Background(), "u1", domain.TaskFilter{})
	if tasks[0].Priority != domain.TaskPriorityMedium {
		t.Fatalf("invalid priority should fall back to MEDIUM, got %s", tasks[0].Priority)
	}
}

func TestCreateTaskToolIgnoresModelSuppliedUserID(t *testing.T) {
	fake := newFakeTaskStore()
	tools := NewTaskTools(fake)

	// A user_id in the arguments must never override the caller identity.
	if _, err := tools.createTask(context.Background(), "u1", json.RawMessage(`{"title":"x","user_id":"victim"}`)); err != nil {
		t.Fatalf("createTask failed: %v", err)
	}
	tasks, _ := fake.ListTasks(context.Background(), "u1", domain.TaskFilter{})
	if len(tasks) != 1 || tasks[0].UserID != "u1" {
		t.Fatalf("task must belong to the authenticated user, got %+v", tasks)
	}
}

func TestCreateTaskToolRequiresTitle(t *testing.T) {
	tools := NewTaskTools(newFakeTaskStore())
	if _, err := tools.createTask(context.Background(), "u1", json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected error for missing title")
	}
}

func TestListTasksToolEmpty(t *testing.T) {
	tools := NewTaskTools(newFakeTaskStore())
	result, err := tools.listTasks(context.Background(), "u1", json.RawMessage(`{"status":"PENDING"}`))
	if err != nil {
		t.Fatalf("listTasks failed: %v", err)
	}
	if !strings.Contains(result, "No tasks found with status 'PENDING'") {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestListTasksToolScopedToUser(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "mine", domain.TaskStatusPending)
	seedTask(fake, "t2", "other", "theirs", domain.TaskStatusPending)
	tools := NewTaskTools(fake)

	result, err := tools.listTasks(context.Background(), "u1", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("listTasks failed: %v", err)
	}
	if !strings.Contains(result, "mine") || strings.Contains(result, "theirs") {
		t.Fatalf("listing leaked across users: %s", result)
	}
}

func TestDeleteTaskToolMultipleMatches(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "buy milk", domain.TaskStatusPending)
	seedTask(fake, "t2", "u1", "buy milk powder", domain.TaskStatusPending)
	tools := NewTaskTools(fake)

	result, err := tools.deleteTask(context.Background(), "u1", json.RawMessage(`{"title_search":"buy milk"}`))
	if err != nil {
		t.Fatalf("deleteTask failed: %v", err)
	}
	if !strings.Contains(result, "Multiple tasks match") {
		t.Fatalf("expected disambiguation message, got: %s", result)
	}
	if len(fake.tasks) != 2 {
		t.Fatalf("nothing should be deleted on ambiguity")
	}
}

func TestDeleteTaskToolByTitle(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "buy milk", domain.TaskStatusPending)
	tools := NewTaskTools(fake)

	result, err := tools.deleteTask(context.Background(), "u1", json.RawMessage(`{"title_search":"milk"}`))
	if err != nil {
		t.Fatalf("deleteTask failed: %v", err)
	}
	if !strings.Contains(result, "has been deleted") {
		t.Fatalf("unexpected result: %s", result)
	}
	if len(fake.tasks) != 0 {
		t.Fatalf("task should be gone")
	}
}

func TestMarkTaskCompleteToolAlreadyCompleted(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "done thing", domain.TaskStatusCompleted)
	tools := NewTaskTools(fake)

	result, err := tools.markTaskComplete(context.Background(), "u1", json.RawMessage(`{"task_id":"t1"}`))
	if err != nil {
		t.Fatalf("markTaskComplete failed: %v", err)
	}
	if !strings.Contains(result, "already completed") {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestMarkTaskCompleteTool(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "ship release", domain.TaskStatusPending)
	tools := NewTaskTools(fake)

	result, err := tools.markTaskComplete(context.Background(), "u1", json.RawMessage(`{"title_search":"ship"}`))
	if err != nil {
		t.Fatalf("markTaskComplete failed: %v", err)
	}
	if !strings.Contains(result, "marked as completed") {
		t.Fatalf("unexpected result: %s", result)
	}
	if fake.tasks["t1"].Status != domain.TaskStatusCompleted {
		t.Fatalf("status not updated: %s", fake.tasks["t1"].Status)
	}
}

func TestUpdateTaskToolNoReference(t *testing.T) {
	tools := NewTaskTools(newFakeTaskStore())
	result, err := tools.updateTask(context.Background(), "u1", json.RawMessage(`{"new_title":"x"}`))
	if err != nil {
		t.Fatalf("updateTask failed: %v", err)
	}
	if !strings.Contains(result, "Must provide task_id or title_search") {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestUpdateTaskTool(t *testing.T) {
	fake := newFakeTaskStore()
	seedTask(fake, "t1", "u1", "old title", domain.TaskStatusPending)
	tools := NewTaskTools(fake)

	result, err := tools.updateTask(context.Background(), "u1", json.RawMessage(`{"task_id":"t1","new_title":"new title","new_priority":"HIGH"}`))
	if err != nil {
		t.Fatalf("updateTask failed: %v", err)
	}
	if !strings.Contains(result, "new title") || !strings.Contains(result, "HIGH") {
		t.Fatalf("unexpected result: %s", result)
	}
	if fake.tasks["t1"].Title != "new title" || fake.tasks["t1"].Priority != domain.TaskPriorityHigh {
		t.Fatalf("update not applied: %+v", fake.tasks["t1"])
	}
}
