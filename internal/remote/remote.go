// Package remote holds the record store backends the board talks to and the
// HTTP surface that exposes any of them.
package remote

import (
	"context"

	"github.com/minhancr123/Task-Management-sub000/internal/store"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// ErrNotFound is returned by every backend for an unknown task id.
var ErrNotFound = store.ErrNotFound

// RecordStore is the narrow contract the board core consumes.
type RecordStore interface {
	FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error
}

// Backend is a RecordStore that owns a connection.
type Backend interface {
	RecordStore
	Close() error
}

type tasksResponse struct {
	Tasks []task.Task `json:"tasks"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
}
