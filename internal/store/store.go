// Package store is the SQLite record store: the default backend the board
// fetches from and writes status moves to.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// Store provides access to the board database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Writes from the UI and the HTTP server share one file.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'todo',
		priority    TEXT NOT NULL DEFAULT 'medium',
		due_date    DATETIME,
		assignee    TEXT DEFAULT '',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS tasks_owner ON tasks(owner_id);

	CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL REFERENCES tasks(id),
		event_type  TEXT NOT NULL,
		content     TEXT DEFAULT '',
		timestamp   DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before manual ordering existed lack the column.
	return s.addColumnIfMissing("tasks", "position", "INTEGER")
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) error {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if _, err := s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// CreateTask inserts a task and returns the stored row. The status label is
// kept as given.
func (s *Store) CreateTask(ctx context.Context, nt NewTask) (*Record, error) {
	title := strings.TrimSpace(nt.Title)
	if title == "" {
		return nil, errors.New("create task: title is required")
	}
	if nt.OwnerID == "" {
		return nil, errors.New("create task: owner is required")
	}
	status := strings.TrimSpace(nt.Status)
	if status == "" {
		status = task.StatusTodo.String()
	}
	priority := nt.Priority
	if priority == "" {
		priority = task.PriorityMedium.String()
	}

	now := s.now()
	r := &Record{
		ID:        uuid.NewString(),
		OwnerID:   nt.OwnerID,
		Title:     title,
		RawStatus: status,
		Priority:  priority,
		DueDate:   nt.DueDate,
		Assignee:  nt.Assignee,
		Position:  nt.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner_id, title, status, priority, due_date, assignee, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Title, r.RawStatus, r.Priority, r.DueDate, r.Assignee, r.Position, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if err := s.addEvent(ctx, r.ID, "created", "Task created: "+title); err != nil {
		return nil, err
	}
	return r, nil
}

// taskColumns is the standard column list for task queries.
const taskColumns = `id, owner_id, title, status, priority, due_date, assignee, position, created_at, updated_at`

// GetTask returns a single task row by id.
func (s *Store) GetTask(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ListTasks returns task rows, optionally filtered by owner and by canonical
// status. Filtering by status happens after canonicalization, so "done" and
// "completed" rows both match StatusCompleted.
func (s *Store) ListTasks(ctx context.Context, ownerID string, status *task.Status) ([]Record, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if status != nil && task.Canonicalize(r.RawStatus) != *status {
			continue
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// FetchTasksForOwner returns the owner's tasks with canonical statuses.
func (s *Store) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	recs, err := s.ListTasks(ctx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	tasks := make([]task.Task, 0, len(recs))
	for _, r := range recs {
		tasks = append(tasks, r.Task())
	}
	return tasks, nil
}

// UpdateTaskStatus writes a canonical status and records a status_changed
// event.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status task.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	defer tx.Rollback()

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update task status %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status.String(), now, id,
	); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	content := fmt.Sprintf("Status changed from %s to %s", task.Canonicalize(prev), status)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (task_id, event_type, content, timestamp) VALUES (?, ?, ?, ?)`,
		id, "status_changed", content, now,
	); err != nil {
		return fmt.Errorf("record status event: %w", err)
	}
	return tx.Commit()
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(ctx context.Context, taskID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, event_type, content, timestamp FROM events WHERE task_id = ? ORDER BY timestamp, id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Type, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) addEvent(ctx context.Context, taskID, eventType, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (task_id, event_type, content, timestamp) VALUES (?, ?, ?, ?)`,
		taskID, eventType, content, s.now(),
	)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a task row from a *sql.Row or *sql.Rows.
func scanRecord(sc scanner) (*Record, error) {
	var r Record
	var due sql.NullTime
	var assignee sql.NullString
	var pos sql.NullInt64
	err := sc.Scan(
		&r.ID, &r.OwnerID, &r.Title, &r.RawStatus, &r.Priority,
		&due, &assignee, &pos, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if due.Valid {
		d := due.Time
		r.DueDate = &d
	}
	r.Assignee = assignee.String
	if pos.Valid {
		p := int(pos.Int64)
		r.Position = &p
	}
	return &r, nil
}
