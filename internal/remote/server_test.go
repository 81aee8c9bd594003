package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// memStore is an in-memory RecordStore with error injection.
type memStore struct {
	mu       sync.Mutex
	tasks    map[string]task.Task
	fetchErr error
	lastSet  task.Status
}

func newMemStore(tasks ...task.Task) *memStore {
	m := &memStore{tasks: make(map[string]task.Task)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *memStore) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []task.Task
	for _, t := range m.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	m.tasks[taskID] = t
	m.lastSet = status
	return nil
}

func newTestServer(t *testing.T, store RecordStore) *echo.Echo {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewServer(store, logger)
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_GetTasks(t *testing.T) {
	e := newTestServer(t, newMemStore(
		task.Task{ID: "1", OwnerID: "alice", Title: "mine", Status: task.StatusInReview},
		task.Task{ID: "2", OwnerID: "bob", Title: "theirs"},
	))

	rec := serve(e, http.MethodGet, "/api/owners/alice/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp tasksResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "1" || resp.Tasks[0].Status != task.StatusInReview {
		t.Fatalf("unexpected tasks: %#v", resp.Tasks)
	}
}

func TestServer_GetTasksEmptyOwner(t *testing.T) {
	e := newTestServer(t, newMemStore())
	rec := serve(e, http.MethodGet, "/api/owners/nobody/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tasks":[]`) {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestServer_GetTasksBackendError(t *testing.T) {
	m := newMemStore()
	m.fetchErr = errors.New("db down")
	rec := serve(newTestServer(t, m), http.MethodGet, "/api/owners/alice/tasks", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 got %d", rec.Code)
	}
}

func TestServer_PatchStatus(t *testing.T) {
	m := newMemStore(task.Task{ID: "1", OwnerID: "alice", Title: "x"})
	e := newTestServer(t, m)

	rec := serve(e, http.MethodPatch, "/api/tasks/1/status", `{"status":"in-progress"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d: %s", rec.Code, rec.Body.String())
	}
	if m.lastSet != task.StatusInProgress {
		t.Fatalf("expected canonical in_progress, got %s", m.lastSet)
	}
}

func TestServer_PatchStatusErrors(t *testing.T) {
	e := newTestServer(t, newMemStore(task.Task{ID: "1", OwnerID: "alice"}))
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown task", "/api/tasks/nope/status", `{"status":"completed"}`, http.StatusNotFound},
		{"empty status", "/api/tasks/1/status", `{"status":"  "}`, http.StatusBadRequest},
		{"bad json", "/api/tasks/1/status", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodPatch, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	rec := serve(newTestServer(t, newMemStore()), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
}

func TestHTTPStore_AgainstServer(t *testing.T) {
	m := newMemStore(
		task.Task{ID: "1", OwnerID: "alice", Title: "round trip", Priority: task.PriorityHigh},
	)
	srv := httptest.NewServer(newTestServer(t, m))
	t.Cleanup(srv.Close)

	client := NewHTTPStore(srv.URL+"/", srv.Client())
	ctx := context.Background()

	tasks, err := client.FetchTasksForOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchTasksForOwner: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "round trip" || tasks[0].Priority != task.PriorityHigh {
		t.Fatalf("unexpected tasks %+v", tasks)
	}

	if err := client.UpdateTaskStatus(ctx, "1", task.StatusCompleted); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if m.lastSet != task.StatusCompleted {
		t.Fatalf("server saw %s", m.lastSet)
	}

	err = client.UpdateTaskStatus(ctx, "missing", task.StatusCompleted)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty, err := client.FetchTasksForOwner(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %#v %v", empty, err)
	}
}

func TestHTTPStore_ServerError(t *testing.T) {
	m := newMemStore()
	m.fetchErr = errors.New("db down")
	srv := httptest.NewServer(newTestServer(t, m))
	t.Cleanup(srv.Close)

	_, err := NewHTTPStore(srv.URL, nil).FetchTasksForOwner(context.Background(), "alice")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected 502 error, got %v", err)
	}
}
