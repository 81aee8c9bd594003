package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// HTTPStore talks to a taskboard server.
type HTTPStore struct {
	base   string
	client *http.Client
}

// NewHTTPStore creates a client for the server at baseURL. A nil client gets
// a default with a 10 second timeout.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStore{base: strings.TrimRight(baseURL, "/"), client: client}
}

// FetchTasksForOwner implements RecordStore.
func (h *HTTPStore) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	u := h.base + "/api/owners/" + url.PathEscape(ownerID) + "/tasks"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := h.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks for %s: %w", ownerID, err)
	}
	var resp tasksResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if resp.Tasks == nil {
		resp.Tasks = []task.Task{}
	}
	return resp.Tasks, nil
}

// UpdateTaskStatus implements RecordStore.
func (h *HTTPStore) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	payload, err := sonic.Marshal(statusRequest{Status: status.String()})
	if err != nil {
		return err
	}
	u := h.base + "/api/tasks/" + url.PathEscape(taskID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := h.do(req); err != nil {
		return fmt.Errorf("update task status %s: %w", taskID, err)
	}
	return nil
}

// Close releases idle connections.
func (h *HTTPStore) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTPStore) do(req *http.Request) ([]byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		var e errorResponse
		if sonic.Unmarshal(body, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Message)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return body, nil
}
