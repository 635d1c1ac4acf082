package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskflow/assistant/domain"
	"github.com/taskflow/assistant/llm"
	"github.com/taskflow/assistant/store"
)

// TaskTools exposes the task-storage collaborator as chat tools. Every
// handler returns formatted text meant to be read by the model and
// summarized to the user.
type TaskTools struct {
	store store.TaskStore
}

// NewTaskTools creates the task tool set backed by the given store.
func NewTaskTools(s store.TaskStore) *TaskTools {
	return &TaskTools{store: s}
}

// Register adds all task tools to the registry.
func (t *TaskTools) Register(r *Registry) {
	r.Register(ToolDef{Schema: createTaskSchema, Handler: t.createTask})
	r.Register(ToolDef{Schema: listTasksSchema, Handler: t.listTasks})
	r.Register(ToolDef{Schema: updateTaskSchema, Handler: t.updateTask})
	r.Register(ToolDef{Schema: deleteTaskSchema, Handler: t.deleteTask})
	r.Register(ToolDef{Schema: markTaskCompleteSchema, Handler: t.markTaskComplete})
}

var createTaskSchema = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "create_task",
		Description: "Create a new task for the user. Extract the task title from the user's message. Optionally extract description, priority (HIGH/MEDIUM/LOW), and due date if mentioned.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "The task title (required, 1-255 characters)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional detailed description of the task",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"HIGH", "MEDIUM", "LOW"},
					"description": "Task priority level (default: MEDIUM)",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "ISO 8601 date string (e.g., 2026-02-01) if mentioned",
				},
			},
			"required": []string{"title"},
		},
	},
}

var listTasksSchema = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "list_tasks",
		Description: "List the user's tasks with optional filtering. Use this when the user asks to see their tasks, what's pending, high priority tasks, etc.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"PENDING", "IN_PROGRESS", "COMPLETED"},
					"description": "Filter by task status (optional)",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"HIGH", "MEDIUM", "LOW"},
					"description": "Filter by priority level (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of tasks to return (default: 20)",
				},
			},
		},
	},
}

var updateTaskSchema = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "update_task",
		Description: "Update an existing task's details. Use when the user asks to change, modify, or edit a task. You can update by task_id or by searching for a task by title.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "The ID of the task to update (if known)",
				},
				"title_search": map[string]interface{}{
					"type":        "string",
					"description": "Search for task by title (if task_id not known)",
				},
				"new_title": map[string]interface{}{
					"type":        "string",
					"description": "New task title",
				},
				"new_description": map[string]interface{}{
					"type":        "string",
					"description": "New task description",
				},
				"new_priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"HIGH", "MEDIUM", "LOW"},
					"description": "New priority level",
				},
				"new_status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"PENDING", "IN_PROGRESS", "COMPLETED"},
					"description": "New task status",
				},
				"new_due_date": map[string]interface{}{
					"type":        "string",
					"description": "New due date (ISO 8601 format)",
				},
			},
		},
	},
}

var deleteTaskSchema = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "delete_task",
		Description: "Delete a task by its ID or title.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "The ID of the task to delete",
				},
				"title_search": map[string]interface{}{
					"type":        "string",
					"description": "The title of the task to delete (use if ID not known)",
				},
			},
		},
	},
}

var markTaskCompleteSchema = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "mark_task_complete",
		Description: "Mark a task as completed. Use when the user says they finished or completed a task.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "The ID of the task to mark complete",
				},
				"title_search": map[string]interface{}{
					"type":        "string",
					"description": "The title of the task to mark complete (use if ID not known)",
				},
			},
		},
	},
}

// Argument structs are one typed variant per tool; decoding drops any
// unknown fields the model invents, including a user_id it has no business
// supplying.

type createTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

type listTasksArgs struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Limit    int    `json:"limit"`
}

type updateTaskArgs struct {
	TaskID         string `json:"task_id"`
	TitleSearch    string `json:"title_search"`
	NewTitle       string `json:"new_title"`
	NewDescription string `json:"new_description"`
	NewPriority    string `json:"new_priority"`
	NewStatus      string `json:"new_status"`
	NewDueDate     string `json:"new_due_date"`
}

type taskRefArgs struct {
	TaskID      string `json:"task_id"`
	TitleSearch string `json:"title_search"`
}

func (t *TaskTools) createTask(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args createTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Title == "" {
		return "", fmt.Errorf("title is required")
	}

	priority := domain.TaskPriorityMedium
	switch domain.TaskPriority(args.Priority) {
	case domain.TaskPriorityHigh, domain.TaskPriorityLow:
		priority = domain.TaskPriority(args.Priority)
	}

	var dueDate *time.Time
	if args.DueDate != "" {
		if parsed, err := parseDueDate(args.DueDate); err == nil {
			dueDate = &parsed
		}
		// Invalid date formats are dropped rather than rejected.
	}

	now := time.Now()
	task := &domain.Task{
		TaskID:      "task_" + uuid.New().String()[:8],
		UserID:      userID,
		Title:       args.Title,
		Description: args.Description,
		Priority:    priority,
		Status:      domain.TaskStatusPending,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.store.CreateTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task created successfully!\n\n**%s**\n- Priority: %s\n- Status: %s", task.Title, task.Priority, task.Status)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n- Description: %s", task.Description)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&b, "\n- Due: %s", task.DueDate.Format("2006-01-02"))
	}
	b.WriteString("\n\nThe task has been added to your dashboard!")
	return b.String(), nil
}

func (t *TaskTools) listTasks(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args listTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	tasks, err := t.store.ListTasks(ctx, userID, domain.TaskFilter{
		Status:   domain.TaskStatus(args.Status),
		Priority: domain.TaskPriority(args.Priority),
		Limit:    args.Limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		var filter string
		if args.Status != "" {
			filter += fmt.Sprintf(" with status '%s'", args.Status)
		}
		if args.Priority != "" {
			filter += fmt.Sprintf(" with priority '%s'", args.Priority)
		}
		return fmt.Sprintf("No tasks found%s. Create one by asking me to add a task!", filter), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Your Tasks** (%d shown):\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&b, "\n[%s] **%s** (%s)", task.Status, task.Title, task.Priority)
		if task.Description != "" {
			fmt.Fprintf(&b, "\n    %s", truncate(task.Description, 100))
		}
	}
	return b.String(), nil
}

func (t *TaskTools) updateTask(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args updateTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	task, notFound, err := t.findTask(ctx, userID, args.TaskID, args.TitleSearch)
	if err != nil {
		return "", err
	}
	if notFound != "" {
		return notFound, nil
	}

	var update domain.TaskUpdate
	if args.NewTitle != "" {
		update.Title = &args.NewTitle
	}
	if args.NewDescription != "" {
		update.Description = &args.NewDescription
	}
	if args.NewPriority != "" {
		p := domain.TaskPriority(args.NewPriority)
		update.Priority = &p
	}
	if args.NewStatus != "" {
		st := domain.TaskStatus(args.NewStatus)
		update.Status = &st
	}
	if args.NewDueDate != "" {
		if parsed, err := parseDueDate(args.NewDueDate); err == nil {
			update.DueDate = &parsed
		}
	}

	if update == (domain.TaskUpdate{}) {
		return "No updates provided.", nil
	}

	updated, err := t.store.UpdateTask(ctx, task.TaskID, userID, update)
	if err != nil {
		return "", fmt.Errorf("failed to update task: %w", err)
	}
	if updated == nil {
		return "Failed to update task.", nil
	}

	return fmt.Sprintf("Task updated successfully!\n\n**%s** has been updated.\n- Status: %s\n- Priority: %s",
		updated.Title, updated.Status, updated.Priority), nil
}

func (t *TaskTools) deleteTask(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args taskRefArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if args.TaskID == "" && args.TitleSearch == "" {
		return "Must provide task_id or title_search.", nil
	}

	if args.TaskID == "" {
		matches, err := t.store.SearchTasksByTitle(ctx, userID, args.TitleSearch)
		if err != nil {
			return "", fmt.Errorf("failed to search tasks: %w", err)
		}
		if len(matches) == 0 {
			return fmt.Sprintf("No task found matching '%s'.", args.TitleSearch), nil
		}
		if len(matches) > 1 {
			titles := make([]string, len(matches))
			for i, m := range matches {
				titles[i] = m.Title
			}
			return fmt.Sprintf("Multiple tasks match '%s': %s. Please be more specific.", args.TitleSearch, strings.Join(titles, ", ")), nil
		}
		args.TaskID = matches[0].TaskID
	}

	task, err := t.store.GetTask(ctx, args.TaskID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return fmt.Sprintf("Task not found with ID '%s'.", args.TaskID), nil
	}

	if err := t.store.DeleteTask(ctx, args.TaskID, userID); err != nil {
		return "", fmt.Errorf("failed to delete task: %w", err)
	}
	return fmt.Sprintf("Task **%s** has been deleted!", task.Title), nil
}

func (t *TaskTools) markTaskComplete(ctx context.Context, userID string, raw json.RawMessage) (string, error) {
	var args taskRefArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	task, notFound, err := t.findTask(ctx, userID, args.TaskID, args.TitleSearch)
	if err != nil {
		return "", err
	}
	if notFound != "" {
		return notFound, nil
	}

	if task.Status == domain.TaskStatusCompleted {
		return fmt.Sprintf("Task **%s** is already completed!", task.Title), nil
	}

	completed := domain.TaskStatusCompleted
	if _, err := t.store.UpdateTask(ctx, task.TaskID, userID, domain.TaskUpdate{Status: &completed}); err != nil {
		return "", fmt.Errorf("failed to update task: %w", err)
	}
	return fmt.Sprintf("Task **%s** has been marked as completed! Great job!", task.Title), nil
}

// findTask resolves a task by id or title search. The second return value is
// a user-facing message when the lookup fails without an internal error.
func (t *TaskTools) findTask(ctx context.Context, userID, taskID, titleSearch string) (*domain.Task, string, error) {
	if taskID == "" && titleSearch == "" {
		return nil, "Must provide task_id or title_search.", nil
	}

	if taskID != "" {
		task, err := t.store.GetTask(ctx, taskID, userID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get task: %w", err)
		}
		if task == nil {
			return nil, fmt.Sprintf("Task not found matching '%s'. Use 'list tasks' to see your tasks.", taskID), nil
		}
		return task, "", nil
	}

	matches, err := t.store.SearchTasksByTitle(ctx, userID, titleSearch)
	if err != nil {
		return nil, "", fmt.Errorf("failed to search tasks: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Sprintf("Task not found matching '%s'. Use 'list tasks' to see your tasks.", titleSearch), nil
	}
	return &matches[0], "", nil
}

func parseDueDate(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
