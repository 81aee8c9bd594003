package task

import (
	"testing"
	"time"
)

func TestPriority_Order(t *testing.T) {
	if !(PriorityLow < PriorityMedium && PriorityMedium < PriorityHigh && PriorityHigh < PriorityCritical) {
		t.Fatal("priorities out of order")
	}
	if ParsePriority("") != PriorityMedium {
		t.Fatal("expected medium default")
	}
	if ParsePriority("Critical") != PriorityCritical {
		t.Fatal("expected critical")
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	pos := 3
	orig := Task{ID: "a", DueDate: &due, Position: &pos}

	c := orig.Clone()
	*c.DueDate = c.DueDate.Add(24 * time.Hour)
	*c.Position = 9

	if !orig.DueDate.Equal(due) {
		t.Errorf("original due date changed: %v", orig.DueDate)
	}
	if *orig.Position != 3 {
		t.Errorf("original position changed: %d", *orig.Position)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	earlierToday := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)

	if !(Task{DueDate: &yesterday}).Overdue(now) {
		t.Error("expected task due yesterday to be overdue")
	}
	if (Task{DueDate: &earlierToday}).Overdue(now) {
		t.Error("task due today should not be overdue")
	}
	if (Task{DueDate: &yesterday, Status: StatusCompleted}).Overdue(now) {
		t.Error("completed task should not be overdue")
	}
	if (Task{}).Overdue(now) {
		t.Error("task without due date should not be overdue")
	}
}
