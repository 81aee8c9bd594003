package store

import (
	"time"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// Record is a task row as stored. RawStatus keeps whatever label the row was
// written with, so legacy aliases such as "in-progress" survive on disk.
type Record struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	RawStatus string     `json:"status"`
	Priority  string     `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
	Position  *int       `json:"position,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Task converts the row into the board model, canonicalizing its status.
func (r Record) Task() task.Task {
	t := task.Task{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Title:    r.Title,
		Status:   task.Canonicalize(r.RawStatus),
		Priority: task.ParsePriority(r.Priority),
		Assignee: r.Assignee,
	}
	if r.DueDate != nil {
		d := *r.DueDate
		t.DueDate = &d
	}
	if r.Position != nil {
		p := *r.Position
		t.Position = &p
	}
	return t
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	OwnerID  string
	Title    string
	Status   string // stored verbatim; empty means todo
	Priority string // empty means medium
	DueDate  *time.Time
	Assignee string
	Position *int
}

// Event represents something that happened to a task.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Type      string    `json:"event_type"` // created, status_changed
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
