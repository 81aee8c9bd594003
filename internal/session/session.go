// Package session owns the per-session board state: one task cache and the
// fetch coordinator, stats aggregator, mutation applier and drag engine that
// share it. Nothing is global; each Controller is independent.
package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/fetch"
	"github.com/minhancr123/Task-Management-sub000/internal/mutation"
	"github.com/minhancr123/Task-Management-sub000/internal/stats"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// Store is the remote record store as the session uses it.
type Store interface {
	fetch.Source
	mutation.StatusUpdater
}

// IdentityProvider supplies the owner the cache is scoped to.
type IdentityProvider interface {
	OwnerID() string
}

// StaticIdentity is a fixed owner id.
type StaticIdentity string

func (s StaticIdentity) OwnerID() string { return string(s) }

// Options tunes a Controller. Zero values pick the component defaults.
type Options struct {
	Logger          log.FieldLogger
	FreshnessWindow time.Duration
	StatsDelay      time.Duration
	StatsScheduler  stats.Scheduler
	DragThreshold   *int
	Gate            board.Gate
	Clock           func() time.Time
	// OnFeedback receives mutation confirmations and failures.
	OnFeedback func(mutation.Feedback)
	// OnStats receives every debounced stats recomputation.
	OnStats func(stats.Stats)
}

// Controller is one active board session.
type Controller struct {
	identity IdentityProvider
	log      log.FieldLogger
	gate     board.Gate

	cache   *cache.Cache
	fetcher *fetch.Coordinator
	stats   *stats.Aggregator
	applier *mutation.Applier
	engine  *board.Engine

	mu     sync.Mutex
	owner  string
	closed bool
	moves  sync.WaitGroup
}

// New builds a controller around store. No fetch is issued until Start.
func New(store Store, identity IdentityProvider, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	var cacheOpts []cache.Option
	if opts.FreshnessWindow > 0 {
		cacheOpts = append(cacheOpts, cache.WithFreshnessWindow(opts.FreshnessWindow))
	}
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(opts.Clock))
	}
	c := cache.New(cacheOpts...)

	statOpts := []stats.Option{stats.WithDelay(opts.StatsDelay)}
	if opts.StatsScheduler != nil {
		statOpts = append(statOpts, stats.WithScheduler(opts.StatsScheduler))
	}
	if opts.OnStats != nil {
		statOpts = append(statOpts, stats.WithOnUpdate(opts.OnStats))
	}

	mutOpts := []mutation.Option{mutation.WithLogger(logger.WithField("component", "mutation"))}
	if opts.OnFeedback != nil {
		mutOpts = append(mutOpts, mutation.WithFeedback(opts.OnFeedback))
	}

	s := &Controller{
		identity: identity,
		log:      logger,
		gate:     opts.Gate,
		cache:    c,
		fetcher:  fetch.New(store, c, logger.WithField("component", "fetch")),
		stats:    stats.NewAggregator(c, statOpts...),
		applier:  mutation.New(c, store, mutOpts...),
	}

	engOpts := []board.Option{
		board.WithPending(s.applier),
		board.WithLogger(logger.WithField("component", "board")),
	}
	if opts.DragThreshold != nil {
		engOpts = append(engOpts, board.WithThreshold(*opts.DragThreshold))
	}
	if opts.Gate != nil {
		engOpts = append(engOpts, board.WithGate(opts.Gate))
	}
	s.engine = board.NewEngine(c, s, engOpts...)
	return s
}

// Start performs the session's initial fetch. Repeated calls for the same
// owner issue no further fetches.
func (s *Controller) Start(ctx context.Context) (fetch.Result, error) {
	owner := s.identity.OwnerID()
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
	return s.fetcher.EnsureInitialized(ctx, owner)
}

// Refresh forces a fetch for the current owner.
func (s *Controller) Refresh(ctx context.Context) (fetch.Result, error) {
	return s.fetcher.Fetch(ctx, s.Owner(), true)
}

// Load returns the collection, from the cache while it is fresh.
func (s *Controller) Load(ctx context.Context) (fetch.Result, error) {
	return s.fetcher.Fetch(ctx, s.Owner(), false)
}

// SyncIdentity re-reads the identity provider. When the owner changed, the
// cache is invalidated, any drag is dropped and the initial fetch for the new
// owner runs. It reports whether the owner changed.
func (s *Controller) SyncIdentity(ctx context.Context) (bool, fetch.Result, error) {
	owner := s.identity.OwnerID()
	s.mu.Lock()
	prev := s.owner
	s.owner = owner
	s.mu.Unlock()
	if owner == prev {
		return false, fetch.Result{}, nil
	}

	s.log.WithFields(log.Fields{"from": prev, "to": owner}).Info("session identity changed")
	s.engine.Cancel()
	s.cache.InvalidateIfOwnerChanged(owner)
	s.fetcher.Reset()
	res, err := s.fetcher.EnsureInitialized(ctx, owner)
	return true, res, err
}

// Owner returns the owner the session is scoped to.
func (s *Controller) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Dispatch applies a drop's move to the cache and marks the task in flight
// before returning; the remote write resolves in the background. Moves of
// one task are sent in dispatch order. It implements board.Dispatcher.
func (s *Controller) Dispatch(d board.Drop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	op := s.applier.StartMove(d.TaskID, d.To)
	s.moves.Add(1)
	go func() {
		defer s.moves.Done()
		// Remote writes are never cancelled once sent.
		_, _ = op.Wait(context.Background())
	}()
}

// Move changes a task's status and waits for the remote write to resolve.
func (s *Controller) Move(ctx context.Context, taskID string, to task.Status) (mutation.Outcome, error) {
	return s.applier.Move(ctx, taskID, to)
}

// Shift moves a task one column left (negative delta) or right in the
// background. It reports false when there is no such column or the
// permission gate refuses the move.
func (s *Controller) Shift(taskID string, delta int) bool {
	t, ok := s.cache.Task(taskID)
	if !ok {
		return false
	}
	i := t.Status.Index() + delta
	if i < 0 || i >= task.NumStatuses {
		return false
	}
	if s.gate != nil && !s.gate(t) {
		return false
	}
	s.Dispatch(board.Drop{TaskID: taskID, From: t.Status, To: task.Statuses[i]})
	return true
}

// Engine exposes the drag engine to the rendering layer.
func (s *Controller) Engine() *board.Engine {
	return s.engine
}

// View returns the rendering readout.
func (s *Controller) View() board.View {
	return s.engine.View()
}

// Stats returns the most recently computed derived stats.
func (s *Controller) Stats() stats.Stats {
	return s.stats.Latest()
}

// FlushStats runs any pending stats recomputation now and returns the result.
func (s *Controller) FlushStats() stats.Stats {
	s.stats.Flush()
	return s.stats.Latest()
}

// InFlight reports whether a move of the task awaits remote confirmation.
func (s *Controller) InFlight(taskID string) bool {
	return s.applier.InFlight(taskID)
}

// Subscribe registers fn to run after every cache change.
func (s *Controller) Subscribe(fn func()) (unsubscribe func()) {
	return s.cache.Subscribe(fn)
}

// Wait blocks until all dispatched moves have resolved.
func (s *Controller) Wait() {
	s.moves.Wait()
}

// Close waits for dispatched moves, stops the stats aggregator and releases
// the initial-fetch latch.
func (s *Controller) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.moves.Wait()
	s.stats.Close()
	s.fetcher.Reset()
	s.engine.Cancel()
}
