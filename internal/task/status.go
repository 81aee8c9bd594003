package task

import "strings"

// Status is a canonical work-item state. Raw labels from record stores are
// converted with Canonicalize before they reach any grouping or comparison,
// so a Status value is always one of the constants below.
type Status uint8

const (
	StatusTodo Status = iota
	StatusInProgress
	StatusInReview
	StatusCompleted
	StatusCancelled

	NumStatuses = 5
)

// Statuses lists the canonical statuses in board column order.
var Statuses = [NumStatuses]Status{
	StatusTodo,
	StatusInProgress,
	StatusInReview,
	StatusCompleted,
	StatusCancelled,
}

var statusNames = [NumStatuses]string{
	"todo",
	"in_progress",
	"in_review",
	"completed",
	"cancelled",
}

var statusLabels = [NumStatuses]string{
	"TODO",
	"IN PROGRESS",
	"IN REVIEW",
	"COMPLETED",
	"CANCELLED",
}

// statusAliases maps normalized raw labels to canonical statuses. Keys are
// lower-case with spaces and hyphens folded to underscores.
var statusAliases = map[string]Status{
	"todo":        StatusTodo,
	"to_do":       StatusTodo,
	"backlog":     StatusTodo,
	"open":        StatusTodo,
	"pending":     StatusTodo,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"running":     StatusInProgress,
	"active":      StatusInProgress,
	"doing":       StatusInProgress,
	"in_review":   StatusInReview,
	"review":      StatusInReview,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
}

// Canonicalize maps any raw status label to a canonical Status. It is total:
// unrecognized input maps to StatusTodo.
func Canonicalize(raw string) Status {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return StatusTodo
}

// ParseStatus is the strict form of Canonicalize. It reports false for labels
// that are neither canonical names nor known aliases.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusAliases[normalizeLabel(raw)]
	return s, ok
}

func normalizeLabel(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "_", " ", "_").Replace(key)
}

// String returns the canonical wire name, e.g. "in_progress".
func (s Status) String() string {
	if int(s) < NumStatuses {
		return statusNames[s]
	}
	return statusNames[StatusTodo]
}

// Label returns the upper-case column heading.
func (s Status) Label() string {
	if int(s) < NumStatuses {
		return statusLabels[s]
	}
	return statusLabels[StatusTodo]
}

// Index returns the column index of the status.
func (s Status) Index() int {
	if int(s) < NumStatuses {
		return int(s)
	}
	return 0
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	return int(s) < NumStatuses
}

// Terminal reports whether the status ends the task's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText canonicalizes whatever label it receives.
func (s *Status) UnmarshalText(b []byte) error {
	*s = Canonicalize(string(b))
	return nil
}
