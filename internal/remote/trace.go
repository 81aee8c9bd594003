package remote

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

const tracerName = "github.com/minhancr123/Task-Management-sub000/internal/remote"

// Span names.
const (
	FetchSpanName  = "recordstore.fetch_tasks"
	UpdateSpanName = "recordstore.update_status"
)

// Traced wraps a RecordStore with one span per call. The tracer comes from
// the global provider when the wrapper is created.
type Traced struct {
	next    RecordStore
	backend string
	tracer  trace.Tracer
}

// NewTraced wraps next. backend names it in span attributes.
func NewTraced(next RecordStore, backend string) *Traced {
	return &Traced{next: next, backend: backend, tracer: otel.Tracer(tracerName)}
}

// FetchTasksForOwner implements RecordStore.
func (t *Traced) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	ctx, span := t.tracer.Start(ctx, FetchSpanName, trace.WithAttributes(
		attribute.String("taskboard.backend", t.backend),
		attribute.String("taskboard.owner", ownerID),
	))
	defer span.End()

	tasks, err := t.next.FetchTasksForOwner(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return tasks, err
	}
	span.SetAttributes(attribute.Int("taskboard.tasks", len(tasks)))
	span.SetStatus(codes.Ok, "")
	return tasks, nil
}

// UpdateTaskStatus implements RecordStore.
func (t *Traced) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	ctx, span := t.tracer.Start(ctx, UpdateSpanName, trace.WithAttributes(
		attribute.String("taskboard.backend", t.backend),
		attribute.String("taskboard.task", taskID),
		attribute.String("taskboard.status", status.String()),
	))
	defer span.End()

	if err := t.next.UpdateTaskStatus(ctx, taskID, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the wrapped store when it owns a connection.
func (t *Traced) Close() error {
	if c, ok := t.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
