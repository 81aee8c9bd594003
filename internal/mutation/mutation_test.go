package mutation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

type updateCall struct {
	taskID string
	status task.Status
	reply  chan error
}

// gatedUpdater hands every remote write to the test to resolve.
type gatedUpdater struct {
	calls chan *updateCall
}

func newGatedUpdater() *gatedUpdater {
	return &gatedUpdater{calls: make(chan *updateCall, 8)}
}

func (g *gatedUpdater) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	c := &updateCall{taskID: taskID, status: status, reply: make(chan error, 1)}
	g.calls <- c
	return <-c.reply
}

func (g *gatedUpdater) next(t *testing.T) *updateCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a remote write")
		return nil
	}
}

func (g *gatedUpdater) expectNone(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected remote write for %s -> %s", c.taskID, c.status)
	case <-time.After(50 * time.Millisecond):
	}
}

type result struct {
	out Outcome
	err error
}

func goMove(a *Applier, id string, to task.Status) <-chan result {
	ch := make(chan result, 1)
	go func() {
		out, err := a.Move(context.Background(), id, to)
		ch <- result{out, err}
	}()
	return ch
}

type feedbackLog struct {
	mu     sync.Mutex
	events []Feedback
}

func (f *feedbackLog) add(fb Feedback) {
	f.mu.Lock()
	f.events = append(f.events, fb)
	f.mu.Unlock()
}

func (f *feedbackLog) all() []Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Feedback(nil), f.events...)
}

func setup(t *testing.T) (*Applier, *cache.Cache, *gatedUpdater, *feedbackLog, *test.Hook) {
	t.Helper()
	c := cache.New()
	c.Put("alice", []task.Task{
		{ID: "x", Title: "Task X", Status: task.StatusTodo},
		{ID: "y", Title: "Task Y", Status: task.StatusTodo},
	})
	u := newGatedUpdater()
	fb := &feedbackLog{}
	logger, hook := test.NewNullLogger()
	a := New(c, u, WithLogger(logger), WithFeedback(fb.add))
	return a, c, u, fb, hook
}

func statusOf(t *testing.T, c *cache.Cache, id string) task.Status {
	t.Helper()
	tk, ok := c.Task(id)
	if !ok {
		t.Fatalf("task %s missing from cache", id)
	}
	return tk.Status
}

func TestMove_RollbackOnFailure(t *testing.T) {
	a, c, u, fb, hook := setup(t)

	done := goMove(a, "x", task.StatusInProgress)
	call := u.next(t)

	if call.status != task.StatusInProgress {
		t.Fatalf("remote write carries %s", call.status)
	}
	if got := statusOf(t, c, "x"); got != task.StatusInProgress {
		t.Fatalf("optimistic status not applied before resolution: %s", got)
	}
	if !a.InFlight("x") {
		t.Fatal("x should be in flight")
	}

	call.reply <- errors.New("permission denied")
	r := <-done

	if r.out != RolledBack || r.err == nil {
		t.Fatalf("expected rollback, got %s %v", r.out, r.err)
	}
	if got := statusOf(t, c, "x"); got != task.StatusTodo {
		t.Fatalf("expected todo after rollback, got %s", got)
	}
	if a.InFlight("x") {
		t.Fatal("x should have left the in-flight set")
	}

	events := fb.all()
	if len(events) != 1 || events[0].Kind != FeedbackFailed {
		t.Fatalf("expected one failure event, got %+v", events)
	}
	if !strings.Contains(events[0].Message, "permission denied") {
		t.Fatalf("failure message lacks reason: %q", events[0].Message)
	}
	if e := hook.LastEntry(); e == nil || e.Level != log.WarnLevel {
		t.Fatalf("expected a warning log, got %+v", e)
	}
}

func TestMove_Confirmed(t *testing.T) {
	a, c, u, fb, _ := setup(t)

	done := goMove(a, "x", task.StatusCompleted)
	u.next(t).reply <- nil
	r := <-done

	if r.out != Confirmed || r.err != nil {
		t.Fatalf("expected confirmed, got %s %v", r.out, r.err)
	}
	if got := statusOf(t, c, "x"); got != task.StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if events := fb.all(); len(events) != 1 || events[0].Kind != FeedbackConfirmed {
		t.Fatalf("expected confirmation event, got %+v", events)
	}
}

func TestMove_SameStatusIsNoop(t *testing.T) {
	a, _, u, fb, _ := setup(t)

	out, err := a.Move(context.Background(), "x", task.StatusTodo)
	if out != Unchanged || err != nil {
		t.Fatalf("expected unchanged, got %s %v", out, err)
	}
	u.expectNone(t)
	if len(fb.all()) != 0 {
		t.Fatal("no feedback expected for a no-op")
	}
}

func TestMove_UnknownTask(t *testing.T) {
	a, _, u, _, _ := setup(t)

	_, err := a.Move(context.Background(), "missing", task.StatusCompleted)
	if !errors.Is(err, ErrTaskNotCached) {
		t.Fatalf("expected ErrTaskNotCached, got %v", err)
	}
	u.expectNone(t)
}

func TestMove_DifferentTasksAreIndependent(t *testing.T) {
	a, c, u, _, _ := setup(t)

	doneX := goMove(a, "x", task.StatusInProgress)
	callX := u.next(t)
	doneY := goMove(a, "y", task.StatusCompleted)
	callY := u.next(t)

	if callX.taskID != "x" || callY.taskID != "y" {
		t.Fatalf("unexpected call order %s, %s", callX.taskID, callY.taskID)
	}
	if ids := a.InFlightIDs(); len(ids) != 2 {
		t.Fatalf("expected both in flight, got %v", ids)
	}

	callY.reply <- nil
	<-doneY
	if a.InFlight("y") || !a.InFlight("x") {
		t.Fatalf("y resolution disturbed x: in flight = %v", a.InFlightIDs())
	}

	callX.reply <- nil
	<-doneX
	if statusOf(t, c, "x") != task.StatusInProgress || statusOf(t, c, "y") != task.StatusCompleted {
		t.Fatal("tasks did not end in their target statuses")
	}
	if len(a.InFlightIDs()) != 0 {
		t.Fatalf("in-flight set not empty: %v", a.InFlightIDs())
	}
}

func TestMove_SameTaskIsSerialized(t *testing.T) {
	a, c, u, _, _ := setup(t)

	first := goMove(a, "x", task.StatusInProgress)
	call1 := u.next(t)
	second := goMove(a, "x", task.StatusInReview)

	deadline := time.Now().Add(2 * time.Second)
	for a.queued("x") < 2 {
		if time.Now().After(deadline) {
			t.Fatal("second move never queued")
		}
		time.Sleep(time.Millisecond)
	}
	u.expectNone(t)

	call1.reply <- nil
	if r := <-first; r.out != Confirmed {
		t.Fatalf("first move: %s %v", r.out, r.err)
	}

	call2 := u.next(t)
	if call2.status != task.StatusInReview {
		t.Fatalf("second write carries %s", call2.status)
	}
	call2.reply <- errors.New("conflict")
	if r := <-second; r.out != RolledBack {
		t.Fatalf("second move: %s %v", r.out, r.err)
	}

	if got := statusOf(t, c, "x"); got != task.StatusInProgress {
		t.Fatalf("rollback must restore the first move's result, got %s", got)
	}
	if a.queued("x") != 0 {
		t.Fatal("lane not released")
	}
}

func TestMove_RollbackKeepsConcurrentFieldEdits(t *testing.T) {
	a, c, u, _, _ := setup(t)

	done := goMove(a, "x", task.StatusInReview)
	call := u.next(t)
	c.Patch("x", func(tk *task.Task) { tk.Title = "Renamed" })

	call.reply <- errors.New("offline")
	<-done

	tk, _ := c.Task("x")
	if tk.Status != task.StatusTodo || tk.Title != "Renamed" {
		t.Fatalf("rollback clobbered other fields: %+v", tk)
	}
}

func TestMove_RollbackTargetVanished(t *testing.T) {
	a, c, u, _, _ := setup(t)

	done := goMove(a, "x", task.StatusInReview)
	call := u.next(t)
	c.Put("alice", []task.Task{{ID: "y", Title: "Task Y"}})

	call.reply <- errors.New("offline")
	if r := <-done; r.out != RolledBack {
		t.Fatalf("expected rolled back outcome, got %s", r.out)
	}
	if _, ok := c.Task("x"); ok {
		t.Fatal("rollback must not recreate a vanished task")
	}
	if a.InFlight("x") {
		t.Fatal("x should have left the in-flight set")
	}
}

func TestApply_CustomChange(t *testing.T) {
	a, c, _, _, _ := setup(t)

	var committed string
	ch := Change{
		Field:    "assignee",
		Describe: "assigned to sam",
		Same:     func(tk task.Task) bool { return tk.Assignee == "sam" },
		Apply: func(tk *task.Task) func(*task.Task) {
			prior := tk.Assignee
			tk.Assignee = "sam"
			return func(tk *task.Task) { tk.Assignee = prior }
		},
		Commit: func(ctx context.Context, id string) error {
			committed = id
			return nil
		},
	}
	out, err := a.Apply(context.Background(), "y", ch)
	if out != Confirmed || err != nil {
		t.Fatalf("apply: %s %v", out, err)
	}
	tk, _ := c.Task("y")
	if tk.Assignee != "sam" || committed != "y" {
		t.Fatalf("custom change not applied: %+v committed=%q", tk, committed)
	}
}

func TestMove_RejectsNonCanonicalStatus(t *testing.T) {
	a, c, u, fb, _ := setup(t)

	out, err := a.Move(context.Background(), "x", task.Status(9))
	if out != Unchanged || !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %s %v", out, err)
	}
	if got := statusOf(t, c, "x"); got != task.StatusTodo {
		t.Fatalf("cache changed to %d", got)
	}
	if a.InFlight("x") || a.queued("x") != 0 {
		t.Fatal("rejected move left state behind")
	}
	u.expectNone(t)
	if len(fb.all()) != 0 {
		t.Fatal("no feedback expected for a rejected move")
	}
}

func TestStart_PatchesBeforeReturning(t *testing.T) {
	a, c, u, _, _ := setup(t)

	op := a.StartMove("x", task.StatusInReview)
	if got := statusOf(t, c, "x"); got != task.StatusInReview {
		t.Fatalf("optimistic status not applied by Start: %s", got)
	}
	if !a.InFlight("x") {
		t.Fatal("x should be in flight once Start returns")
	}
	u.expectNone(t)

	done := make(chan result, 1)
	go func() {
		out, err := op.Wait(context.Background())
		done <- result{out, err}
	}()
	u.next(t).reply <- nil
	if r := <-done; r.out != Confirmed || r.err != nil {
		t.Fatalf("expected confirmed, got %s %v", r.out, r.err)
	}
	if a.InFlight("x") {
		t.Fatal("x should have left the in-flight set")
	}
}

func TestStart_QueuedEditsKeepCallOrder(t *testing.T) {
	a, c, u, _, _ := setup(t)

	first := a.StartMove("x", task.StatusInProgress)
	second := a.StartMove("x", task.StatusInReview)
	if got := statusOf(t, c, "x"); got != task.StatusInProgress {
		t.Fatalf("queued edit must not patch before its turn, got %s", got)
	}
	if a.queued("x") != 2 || !a.InFlight("x") {
		t.Fatalf("queued = %d, in flight = %v", a.queued("x"), a.InFlight("x"))
	}

	// Resolve in reverse start order; the lane still runs them in call order.
	secondDone := make(chan result, 1)
	go func() {
		out, err := second.Wait(context.Background())
		secondDone <- result{out, err}
	}()
	u.expectNone(t)
	firstDone := make(chan result, 1)
	go func() {
		out, err := first.Wait(context.Background())
		firstDone <- result{out, err}
	}()

	call1 := u.next(t)
	if call1.status != task.StatusInProgress {
		t.Fatalf("first write carries %s", call1.status)
	}
	call1.reply <- nil
	<-firstDone
	if !a.InFlight("x") {
		t.Fatal("x must stay in flight while the second edit is pending")
	}

	call2 := u.next(t)
	if call2.status != task.StatusInReview {
		t.Fatalf("second write carries %s", call2.status)
	}
	call2.reply <- nil
	<-secondDone

	if got := statusOf(t, c, "x"); got != task.StatusInReview {
		t.Fatalf("final status = %s, want in_review", got)
	}
	if a.InFlight("x") || a.queued("x") != 0 {
		t.Fatal("lane or in-flight mark not released")
	}
}
