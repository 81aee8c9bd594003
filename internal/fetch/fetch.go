// Package fetch mediates every read of the task collection. It keeps at most
// one network fetch in flight per coordinator, serves fresh cached data
// without a round trip, and only applies the response of the most recently
// issued request.
package fetch

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// Source is the read half of the remote record store.
type Source interface {
	FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error)
}

// Result describes what a fetch call produced.
type Result struct {
	Tasks      []task.Task
	FromCache  bool // Served from the cache without a network call.
	Stale      bool // The fetch failed and a previously cached value was served.
	Superseded bool // A newer request was issued; this response was discarded.
}

type call struct {
	id    uint64
	owner string
	done  chan struct{}
	res   Result
	err   error
}

// Coordinator issues collection fetches against a Source on behalf of one
// session cache.
type Coordinator struct {
	src   Source
	cache *cache.Cache
	log   log.FieldLogger

	mu       sync.Mutex
	seq      uint64
	inflight *call

	// One-shot initial fetch latch, keyed by owner.
	latchOwner string
	initCall   *call
}

// New returns a coordinator writing into c. A nil logger uses the standard
// logrus logger.
func New(src Source, c *cache.Cache, logger log.FieldLogger) *Coordinator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Coordinator{src: src, cache: c, log: logger}
}

// Fetch returns the owner's task collection. A non-forced call is answered
// from a fresh cache entry when one exists, and joins an in-flight fetch
// instead of issuing a duplicate. A forced call always goes to the Source.
//
// On failure the error is returned together with any cached value still held
// for the owner, or an empty collection when there is none.
func (c *Coordinator) Fetch(ctx context.Context, ownerID string, force bool) (Result, error) {
	c.mu.Lock()
	c.cache.InvalidateIfOwnerChanged(ownerID)
	if !force {
		if tasks, ok := c.cache.Get(ownerID); ok {
			c.mu.Unlock()
			c.log.WithField("owner", ownerID).Debug("serving tasks from cache")
			return Result{Tasks: tasks, FromCache: true}, nil
		}
		if c.inflight != nil && c.inflight.owner == ownerID {
			cl := c.inflight
			c.mu.Unlock()
			return c.wait(ctx, cl)
		}
	}
	cl := c.startLocked(ownerID)
	c.mu.Unlock()
	return c.run(ctx, cl)
}

// EnsureInitialized performs the first fetch for ownerID exactly once, no
// matter how many times it is called. Later calls join the initial fetch
// while it runs and are answered from the cache afterwards. The latch resets
// when a different owner is passed or Reset is called.
func (c *Coordinator) EnsureInitialized(ctx context.Context, ownerID string) (Result, error) {
	c.mu.Lock()
	if c.initCall != nil && c.latchOwner == ownerID {
		cl := c.initCall
		c.mu.Unlock()
		select {
		case <-cl.done:
			return c.cached(ownerID), nil
		default:
		}
		return c.wait(ctx, cl)
	}

	c.cache.InvalidateIfOwnerChanged(ownerID)
	c.latchOwner = ownerID
	if tasks, ok := c.cache.Get(ownerID); ok {
		cl := &call{owner: ownerID, done: make(chan struct{}), res: Result{Tasks: tasks, FromCache: true}}
		close(cl.done)
		c.initCall = cl
		c.mu.Unlock()
		return Result{Tasks: task.CloneAll(tasks), FromCache: true}, nil
	}
	cl := c.startLocked(ownerID)
	c.initCall = cl
	c.mu.Unlock()
	return c.run(ctx, cl)
}

// Reset clears the initial-fetch latch, e.g. when the session is torn down.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.latchOwner = ""
	c.initCall = nil
	c.mu.Unlock()
}

// InFlight reports whether a fetch is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) startLocked(ownerID string) *call {
	c.seq++
	cl := &call{id: c.seq, owner: ownerID, done: make(chan struct{})}
	c.inflight = cl
	return cl
}

func (c *Coordinator) run(ctx context.Context, cl *call) (Result, error) {
	tasks, err := c.src.FetchTasksForOwner(ctx, cl.owner)
	logger := c.log.WithFields(log.Fields{"owner": cl.owner, "request": cl.id})

	c.mu.Lock()
	latest := cl.id == c.seq
	switch {
	case !latest:
		// A newer request owns the cache now.
		cl.res = Result{Superseded: true}
		if err != nil {
			cl.err = fmt.Errorf("fetch tasks: %w", err)
		}
	case err != nil:
		c.inflight = nil
		cl.err = fmt.Errorf("fetch tasks: %w", err)
		if cached, _, ok := c.cache.Lookup(cl.owner); ok {
			cl.res = Result{Tasks: cached, Stale: true}
		} else {
			cl.res = Result{Tasks: []task.Task{}}
		}
	default:
		c.inflight = nil
		c.cache.Put(cl.owner, tasks)
		cl.res = Result{Tasks: task.CloneAll(tasks)}
	}
	close(cl.done)
	c.mu.Unlock()

	switch {
	case cl.res.Superseded:
		logger.Debug("discarding superseded fetch response")
	case cl.err != nil:
		logger.WithError(err).WithField("fallback", cl.res.Stale).Warn("task fetch failed")
	default:
		logger.WithField("tasks", len(tasks)).Debug("task fetch applied")
	}
	res := cl.res
	res.Tasks = task.CloneAll(res.Tasks)
	return res, cl.err
}

// wait blocks until cl resolves. A waiter whose call was superseded is
// answered with whatever the cache holds at that point.
func (c *Coordinator) wait(ctx context.Context, cl *call) (Result, error) {
	select {
	case <-cl.done:
	case <-ctx.Done():
		return Result{Tasks: []task.Task{}}, ctx.Err()
	}
	if cl.res.Superseded {
		return c.cached(cl.owner), nil
	}
	res := cl.res
	res.Tasks = task.CloneAll(res.Tasks)
	return res, cl.err
}

func (c *Coordinator) cached(ownerID string) Result {
	tasks, _, ok := c.cache.Lookup(ownerID)
	if !ok {
		tasks = []task.Task{}
	}
	return Result{Tasks: tasks, FromCache: true}
}
