// Package board implements the drag-and-drop state machine behind the task
// board. Pointer events come from the rendering layer, which also resolves
// the release point to a Target; the engine decides whether the gesture is a
// click, a cancelled drag or a status move, and hands moves to a Dispatcher.
package board

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// DefaultThreshold is how far the pointer travels, in cells, before a press
// turns into a drag.
const DefaultThreshold = 2

// State is the engine's gesture state.
type State int

const (
	Idle      State = iota // No pointer is held.
	Armed                  // Pointer is down on a card but has not moved far.
	Dragging               // A drag session is active.
	Resolving              // Pointer was released; the drop target is being resolved.
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	default:
		return "idle"
	}
}

// Point is a pointer position in rendering-layer units.
type Point struct {
	X, Y int
}

func (p Point) distance(q Point) int {
	dx, dy := p.X-q.X, p.Y-q.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

// TargetKind says what lies under the release point.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetColumn
	TargetCard
)

// Target is what the rendering layer found under the pointer.
type Target struct {
	Kind   TargetKind
	Status task.Status // set for TargetColumn
	TaskID string      // set for TargetCard
}

// NoTarget is a release over empty space.
var NoTarget = Target{}

// ColumnTarget is a release over a column's empty area or header.
func ColumnTarget(s task.Status) Target {
	return Target{Kind: TargetColumn, Status: s}
}

// CardTarget is a release over another task's card.
func CardTarget(taskID string) Target {
	return Target{Kind: TargetCard, TaskID: taskID}
}

// Session is the ephemeral drag session.
type Session struct {
	// Task is a snapshot taken when the drag activated.
	Task task.Task
	// Origin is the task's canonical status at activation.
	Origin task.Status
	// At is the last pointer position.
	At Point
}

// Drop is a resolved move handed to the Dispatcher.
type Drop struct {
	TaskID string
	From   task.Status
	To     task.Status
}

// Dispatcher receives moves. It must not block; the session controller runs
// the optimistic mutation on its own goroutine.
type Dispatcher interface {
	Dispatch(Drop)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(Drop)

func (f DispatchFunc) Dispatch(d Drop) { f(d) }

// Gate is the permission predicate consulted before a move.
type Gate func(task.Task) bool

// Tasks is the engine's read access to the session cache.
type Tasks interface {
	Task(id string) (task.Task, bool)
	Snapshot() []task.Task
}

// Pending reports in-flight mutations.
type Pending interface {
	InFlight(id string) bool
}

// Outcome is what a pointer release amounted to.
type Outcome int

const (
	OutcomeNone       Outcome = iota // Release with no press in progress.
	OutcomeClick                     // Press and release without passing the threshold.
	OutcomeNoTarget                  // Drag released over nothing, or the target could not be resolved.
	OutcomeSameStatus                // Target status equals the origin status.
	OutcomeRejected                  // The permission gate refused the move.
	OutcomeDispatched                // A move was handed to the Dispatcher.
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClick:
		return "click"
	case OutcomeNoTarget:
		return "no_target"
	case OutcomeSameStatus:
		return "same_status"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "none"
	}
}

// Release describes the end of a gesture.
type Release struct {
	Outcome Outcome
	// TaskID is the pressed task; set for every outcome but OutcomeNone.
	TaskID string
	Drop   Drop
}

// Engine is the board's drag-and-drop state machine. Transitions never block.
type Engine struct {
	tasks     Tasks
	pending   Pending
	dispatch  Dispatcher
	gate      Gate
	threshold int
	log       log.FieldLogger

	mu      sync.Mutex
	state   State
	pressAt Point
	pressID string
	drag    *Session
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the activation distance. Zero activates on the first move.
func WithThreshold(cells int) Option {
	return func(e *Engine) {
		if cells >= 0 {
			e.threshold = cells
		}
	}
}

// WithGate installs a permission gate.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithPending lets the engine mark in-flight cards and refuse to pick them up.
func WithPending(p Pending) Option {
	return func(e *Engine) { e.pending = p }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an idle engine.
func NewEngine(tasks Tasks, d Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		tasks:     tasks,
		dispatch:  d,
		threshold: DefaultThreshold,
		log:       log.StandardLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the current gesture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dragging returns a copy of the active drag session, if any.
func (e *Engine) Dragging() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return Session{}, false
	}
	s := *e.drag
	s.Task = s.Task.Clone()
	return s, true
}

// PointerDown arms the engine when the press lands on a card that is not
// waiting on a remote write. It reports whether the engine armed.
func (e *Engine) PointerDown(at Point, taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		e.resetLocked()
	}
	if taskID == "" || e.isPending(taskID) {
		return false
	}
	e.state = Armed
	e.pressAt = at
	e.pressID = taskID
	return true
}

// PointerMove advances an armed press into a drag once the pointer has moved
// past the threshold, and tracks the pointer while dragging. It reports
// whether a drag session is active afterwards.
func (e *Engine) PointerMove(at Point) (active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("drag activation failed")
			e.resetLocked()
			active = false
		}
	}()

	switch e.state {
	case Armed:
		if at.distance(e.pressAt) <= e.threshold {
			return false
		}
		t, ok := e.tasks.Task(e.pressID)
		if !ok {
			// Removed by a refetch between press and activation.
			e.resetLocked()
			return false
		}
		e.drag = &Session{Task: t, Origin: t.Status, At: at}
		e.state = Dragging
		e.log.WithField("task", t.ID).Debug("drag started")
		return true
	case Dragging:
		e.drag.At = at
		return true
	}
	return false
}

// PointerUp ends the gesture. For an active drag the target is resolved to a
// canonical status and, when it differs from the origin and the gate allows
// it, a Drop is dispatched. The engine is always idle afterwards.
func (e *Engine) PointerUp(at Point, target Target) (rel Release) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.resetLocked()
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("drop failed")
			rel = Release{Outcome: OutcomeNoTarget, TaskID: rel.TaskID}
		}
	}()

	switch e.state {
	case Armed:
		return Release{Outcome: OutcomeClick, TaskID: e.pressID}
	case Dragging:
	default:
		return Release{}
	}

	e.state = Resolving
	e.drag.At = at
	drag := *e.drag
	rel.TaskID = drag.Task.ID

	to, ok := e.resolve(target)
	if !ok {
		rel.Outcome = OutcomeNoTarget
		return rel
	}
	if to == drag.Origin {
		rel.Outcome = OutcomeSameStatus
		return rel
	}
	if e.gate != nil && !e.allowed(drag.Task) {
		e.log.WithField("task", drag.Task.ID).Info("move rejected by permission gate")
		rel.Outcome = OutcomeRejected
		return rel
	}

	rel.Outcome = OutcomeDispatched
	rel.Drop = Drop{TaskID: drag.Task.ID, From: drag.Origin, To: to}
	e.log.WithFields(log.Fields{"task": drag.Task.ID, "from": drag.Origin, "to": to}).Debug("drop dispatched")
	e.dispatch.Dispatch(rel.Drop)
	return rel
}

// Cancel abandons any gesture in progress. It reports whether a drag session
// was discarded.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	had := e.drag != nil
	e.resetLocked()
	return had
}

// View groups the cached tasks into columns and attaches the drag readout.
func (e *Engine) View() View {
	tasks := e.tasks.Snapshot()
	v := View{Columns: Group(tasks, e.pendingFunc())}
	if s, ok := e.Dragging(); ok {
		v.Drag = &s
	}
	return v
}

func (e *Engine) pendingFunc() func(string) bool {
	if e.pending == nil {
		return nil
	}
	return e.pending.InFlight
}

// resolve maps a release target to a canonical status. Any failure counts as
// no target.
func (e *Engine) resolve(target Target) (to task.Status, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("drop target resolution failed")
			ok = false
		}
	}()
	switch target.Kind {
	case TargetColumn:
		if target.Status.Index() != int(target.Status) {
			return 0, false
		}
		return target.Status, true
	case TargetCard:
		t, found := e.tasks.Task(target.TaskID)
		if !found {
			return 0, false
		}
		return t.Status, true
	}
	return 0, false
}

func (e *Engine) allowed(t task.Task) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", fmt.Sprint(r)).Error("permission gate failed")
			ok = false
		}
	}()
	return e.gate(t.Clone())
}

func (e *Engine) isPending(taskID string) bool {
	return e.pending != nil && e.pending.InFlight(taskID)
}

func (e *Engine) resetLocked() {
	e.state = Idle
	e.pressID = ""
	e.pressAt = Point{}
	e.drag = nil
}

// FrozenGate refuses every move when readOnly is set, and otherwise refuses
// moves of tasks sitting in one of the frozen statuses.
func FrozenGate(readOnly bool, frozen ...task.Status) Gate {
	return func(t task.Task) bool {
		if readOnly {
			return false
		}
		for _, s := range frozen {
			if t.Status == s {
				return false
			}
		}
		return true
	}
}
