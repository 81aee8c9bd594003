// Package task defines the work item shown on the board and the closed set
// of statuses it can be in.
package task

import "time"

// Task is a unit of work mirrored from the record store.
type Task struct {
	ID       string     `json:"id"`
	OwnerID  string     `json:"owner_id,omitempty"`
	Title    string     `json:"title"`
	Status   Status     `json:"status"`
	Priority Priority   `json:"priority"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Assignee string     `json:"assignee,omitempty"`
	Position *int       `json:"position,omitempty"` // Within-column placement.
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Position != nil {
		p := *t.Position
		c.Position = &p
	}
	return c
}

// Overdue reports whether the due date lies before the day containing now
// and the task is still open.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status.Terminal() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today)
}

// CloneAll deep-copies a task slice.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
