package board

import (
	"sort"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// Card is one task as the rendering layer sees it.
type Card struct {
	Task task.Task
	// Pending is true while a remote write for the task is unresolved.
	Pending bool
}

// Column holds the cards of one canonical status, in display order.
type Column struct {
	Status task.Status
	Label  string
	Cards  []Card
}

// View is the readout handed to the rendering layer.
type View struct {
	Columns [task.NumStatuses]Column
	// Drag is nil unless a drag session is active.
	Drag *Session
}

// Column returns the column for a status.
func (v View) Column(s task.Status) Column {
	return v.Columns[s.Index()]
}

// Find locates a task's card, returning its column and row.
func (v View) Find(taskID string) (col, row int, ok bool) {
	for c := range v.Columns {
		for r, card := range v.Columns[c].Cards {
			if card.Task.ID == taskID {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

// Group sorts tasks into one column per canonical status. pending may be nil.
func Group(tasks []task.Task, pending func(id string) bool) [task.NumStatuses]Column {
	var cols [task.NumStatuses]Column
	for i, s := range task.Statuses {
		cols[i] = Column{Status: s, Label: s.Label()}
	}
	for _, t := range tasks {
		// Status is a closed enum; Index clamps anything out of range to todo.
		i := t.Status.Index()
		cols[i].Cards = append(cols[i].Cards, Card{
			Task:    t.Clone(),
			Pending: pending != nil && pending(t.ID),
		})
	}
	for i := range cols {
		sortCards(cols[i].Cards)
	}
	return cols
}

// sortCards orders by position index (unpositioned last), then priority
// descending, then title.
func sortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i].Task, cards[j].Task
		switch {
		case a.Position != nil && b.Position == nil:
			return true
		case a.Position == nil && b.Position != nil:
			return false
		case a.Position != nil && *a.Position != *b.Position:
			return *a.Position < *b.Position
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Title < b.Title
	})
}
