// Package store defines the task storage interface and implementations.
package store

import (
	"context"

	"github.com/taskflow/assistant/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID, userID string) (*domain.Task, error)
	ListTasks(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error)
	SearchTasksByTitle(ctx context.Context, userID, query string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, taskID, userID string, update domain.TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID, userID string) error

	// Lifecycle
	Close() error
}
