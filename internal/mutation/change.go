package mutation

import (
	"context"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// StatusUpdater is the write half of the remote record store.
type StatusUpdater interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error
}

// Change is one optimistic field edit: a local patch that knows how to undo
// itself, plus the remote write that confirms it.
type Change struct {
	// Field names the edited field for logs.
	Field string
	// Describe is a short human-readable form, e.g. "moved to IN REVIEW".
	Describe string
	// Same reports whether applying the change to t would alter nothing.
	Same func(t task.Task) bool
	// Apply writes the new value into t and returns a function restoring the
	// value it overwrote.
	Apply func(t *task.Task) (revert func(*task.Task))
	// Commit performs the remote write.
	Commit func(ctx context.Context, taskID string) error
}

// StatusChange moves a task to status to.
func StatusChange(u StatusUpdater, to task.Status) Change {
	return Change{
		Field:    "status",
		Describe: "moved to " + to.Label(),
		Same:     func(t task.Task) bool { return t.Status == to },
		Apply: func(t *task.Task) func(*task.Task) {
			prior := t.Status
			t.Status = to
			return func(t *task.Task) { t.Status = prior }
		},
		Commit: func(ctx context.Context, taskID string) error {
			return u.UpdateTaskStatus(ctx, taskID, to)
		},
	}
}
