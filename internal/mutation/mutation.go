// Package mutation applies task edits optimistically: the session cache is
// patched before the remote write is sent and restored if the write fails.
// Edits to the same task run one after another; edits to different tasks do
// not wait for each other.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

var (
	// ErrTaskNotCached is returned when the task to edit is not in the cache.
	ErrTaskNotCached = errors.New("task not in cache")
	// ErrInvalidStatus is returned for a move to a value outside the canonical statuses.
	ErrInvalidStatus = errors.New("not a canonical status")
)

// Outcome is how an edit ended.
type Outcome int

const (
	Unchanged  Outcome = iota // Nothing to do; no remote call was made.
	Confirmed                 // Remote write succeeded; the optimistic value stands.
	RolledBack                // Remote write failed; the prior value was restored.
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unchanged"
	}
}

// FeedbackKind distinguishes confirmation from failure events.
type FeedbackKind int

const (
	FeedbackConfirmed FeedbackKind = iota
	FeedbackFailed
)

// Feedback is emitted to the user-facing notification surface after every
// remote write resolves.
type Feedback struct {
	Kind    FeedbackKind
	TaskID  string
	Title   string
	Message string
	Err     error
}

// lane orders the edits of one task. The head edit holds the turn; the rest
// wait in arrival order.
type lane struct {
	busy    bool
	waiters []chan struct{}
}

// Applier runs optimistic edits against one session cache.
type Applier struct {
	cache  *cache.Cache
	store  StatusUpdater
	log    log.FieldLogger
	notify func(Feedback)

	lanesMu sync.Mutex
	lanes   map[string]*lane

	inflightMu sync.Mutex
	inflight   map[string]int
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the logger; the default is the standard logrus logger.
func WithLogger(l log.FieldLogger) Option {
	return func(a *Applier) { a.log = l }
}

// WithFeedback registers the user feedback sink.
func WithFeedback(fn func(Feedback)) Option {
	return func(a *Applier) { a.notify = fn }
}

// New creates an Applier.
func New(c *cache.Cache, store StatusUpdater, opts ...Option) *Applier {
	a := &Applier{
		cache:    c,
		store:    store,
		log:      log.StandardLogger(),
		lanes:    make(map[string]*lane),
		inflight: make(map[string]int),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Move changes the task's status optimistically. It blocks until the remote
// write resolves.
func (a *Applier) Move(ctx context.Context, taskID string, to task.Status) (Outcome, error) {
	return a.StartMove(taskID, to).Wait(ctx)
}

// StartMove is the non-blocking form of Move. See Start.
func (a *Applier) StartMove(taskID string, to task.Status) *Op {
	if !to.Valid() {
		return &Op{begun: true, done: true, err: fmt.Errorf("status %s: %w", taskID, ErrInvalidStatus)}
	}
	return a.Start(taskID, StatusChange(a.store, to))
}

// Apply runs an arbitrary optimistic change. A second Apply for a task that
// is already being edited waits for the first to resolve before reading the
// task's current value.
func (a *Applier) Apply(ctx context.Context, taskID string, ch Change) (Outcome, error) {
	return a.Start(taskID, ch).Wait(ctx)
}

// Start begins an edit without waiting for the remote write. The task counts
// as in flight from Start until Wait returns. When no other edit of the task
// is pending, the optimistic patch is in the cache before Start returns;
// otherwise the edit queues behind the pending ones, in call order, and is
// patched when its turn comes. Wait must be called exactly once.
func (a *Applier) Start(taskID string, ch Change) *Op {
	op := &Op{a: a, taskID: taskID, ch: ch}
	op.turn = a.enqueue(taskID)
	a.addInFlight(taskID, 1)
	select {
	case <-op.turn:
		op.begin()
	default:
	}
	return op
}

// Op is an edit started by Start.
type Op struct {
	a      *Applier
	taskID string
	ch     Change
	turn   <-chan struct{}

	begun   bool
	done    bool
	outcome Outcome
	err     error
	current task.Task
	revert  func(*task.Task)
}

// begin reads the current value and applies the optimistic patch. It runs
// while the op holds its task's turn.
func (op *Op) begin() {
	op.begun = true
	a, id := op.a, op.taskID

	current, ok := a.cache.Task(id)
	if !ok {
		op.finish(Unchanged, fmt.Errorf("%s %s: %w", op.ch.Field, id, ErrTaskNotCached))
		return
	}
	if op.ch.Same(current) {
		op.finish(Unchanged, nil)
		return
	}
	op.current = current
	if !a.cache.Patch(id, func(t *task.Task) { op.revert = op.ch.Apply(t) }) {
		op.finish(Unchanged, fmt.Errorf("%s %s: %w", op.ch.Field, id, ErrTaskNotCached))
	}
}

// finish ends an op that never reached the remote store.
func (op *Op) finish(out Outcome, err error) {
	op.done, op.outcome, op.err = true, out, err
	op.a.addInFlight(op.taskID, -1)
	op.a.release(op.taskID)
}

// Wait waits for the op's turn if it was queued, sends the remote write and
// confirms or rolls back the optimistic value.
func (op *Op) Wait(ctx context.Context) (Outcome, error) {
	if !op.begun {
		<-op.turn
		op.begin()
	}
	if op.done {
		return op.outcome, op.err
	}
	op.done = true

	a, id, ch, current := op.a, op.taskID, op.ch, op.current
	defer a.release(id)

	logger := a.log.WithFields(log.Fields{"task": id, "field": ch.Field})
	err := ch.Commit(ctx, id)
	if err != nil {
		// The task may have vanished in a refetch; then there is nothing to restore.
		restored := a.cache.Patch(id, op.revert)
		a.addInFlight(id, -1)
		logger.WithError(err).WithField("restored", restored).Warn("task mutation rolled back")
		a.emit(Feedback{
			Kind:    FeedbackFailed,
			TaskID:  id,
			Title:   current.Title,
			Message: fmt.Sprintf("%q could not be %s: %v", current.Title, ch.Describe, err),
			Err:     err,
		})
		op.outcome, op.err = RolledBack, fmt.Errorf("%s %s: %w", ch.Field, id, err)
		return op.outcome, op.err
	}

	a.addInFlight(id, -1)
	logger.Info("task mutation confirmed")
	a.emit(Feedback{
		Kind:    FeedbackConfirmed,
		TaskID:  id,
		Title:   current.Title,
		Message: fmt.Sprintf("%q %s", current.Title, ch.Describe),
	})
	op.outcome = Confirmed
	return op.outcome, nil
}

// InFlight reports whether a remote write for the task is pending.
func (a *Applier) InFlight(taskID string) bool {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	_, ok := a.inflight[taskID]
	return ok
}

// InFlightIDs returns the pending task ids in sorted order.
func (a *Applier) InFlightIDs() []string {
	a.inflightMu.Lock()
	ids := make([]string, 0, len(a.inflight))
	for id := range a.inflight {
		ids = append(ids, id)
	}
	a.inflightMu.Unlock()
	sort.Strings(ids)
	return ids
}

func (a *Applier) addInFlight(taskID string, delta int) {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	if n := a.inflight[taskID] + delta; n > 0 {
		a.inflight[taskID] = n
	} else {
		delete(a.inflight, taskID)
	}
}

// enqueue takes a place on the task's lane. The returned channel is closed
// when the place reaches the head.
func (a *Applier) enqueue(taskID string) <-chan struct{} {
	a.lanesMu.Lock()
	defer a.lanesMu.Unlock()
	l, ok := a.lanes[taskID]
	if !ok {
		l = &lane{}
		a.lanes[taskID] = l
	}
	turn := make(chan struct{})
	if l.busy {
		l.waiters = append(l.waiters, turn)
	} else {
		l.busy = true
		close(turn)
	}
	return turn
}

// release hands the task's turn to the next waiter.
func (a *Applier) release(taskID string) {
	a.lanesMu.Lock()
	defer a.lanesMu.Unlock()
	l, ok := a.lanes[taskID]
	if !ok {
		return
	}
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	delete(a.lanes, taskID)
}

// queued returns how many edits hold or wait for the task's lane.
func (a *Applier) queued(taskID string) int {
	a.lanesMu.Lock()
	defer a.lanesMu.Unlock()
	if l, ok := a.lanes[taskID]; ok {
		return len(l.waiters) + 1
	}
	return 0
}

func (a *Applier) emit(f Feedback) {
	if a.notify != nil {
		a.notify(f)
	}
}
