package remote

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// NewServer returns an echo instance serving store over HTTP.
func NewServer(store RecordStore, logger log.FieldLogger) *echo.Echo {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	Register(e, store, logger)
	return e
}

// Register wires up the API routes on e.
func Register(e *echo.Echo, store RecordStore, logger log.FieldLogger) {
	e.GET("/api/owners/:owner/tasks", getTasks(store, logger))
	e.PATCH("/api/tasks/:id/status", patchStatus(store, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(store RecordStore, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner := c.Param("owner")
		tasks, err := store.FetchTasksForOwner(c.Request().Context(), owner)
		if err != nil {
			logger.WithError(err).WithField("owner", owner).Error("fetch tasks failed")
			return writeJSON(c, http.StatusBadGateway, errorResponse{Message: "fetch tasks failed"})
		}
		if tasks == nil {
			tasks = []task.Task{}
		}
		return writeJSON(c, http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func patchStatus(store RecordStore, logger log.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
		if err != nil {
			return writeJSON(c, http.StatusBadRequest, errorResponse{Message: "unreadable body"})
		}
		var req statusRequest
		if err := sonic.Unmarshal(body, &req); err != nil {
			return writeJSON(c, http.StatusBadRequest, errorResponse{Message: "invalid json"})
		}
		if strings.TrimSpace(req.Status) == "" {
			return writeJSON(c, http.StatusBadRequest, errorResponse{Message: "status is required"})
		}

		status := task.Canonicalize(req.Status)
		err = store.UpdateTaskStatus(c.Request().Context(), id, status)
		switch {
		case errors.Is(err, ErrNotFound):
			return writeJSON(c, http.StatusNotFound, errorResponse{Message: "task not found"})
		case err != nil:
			logger.WithError(err).WithField("task", id).Error("update task status failed")
			return writeJSON(c, http.StatusBadGateway, errorResponse{Message: "update failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func writeJSON(c echo.Context, code int, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(code, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func requestLogger(logger log.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(log.Fields{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"total_ms": time.Since(start).Milliseconds(),
			}).Debug("request")
			return nil
		}
	}
}
