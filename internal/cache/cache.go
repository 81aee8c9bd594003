// Package cache holds the board's last-fetched task collection for one
// session. It performs no I/O; all access is guarded by a mutex so the fetch
// and mutation goroutines can share it with the UI loop.
package cache

import (
	"sync"
	"time"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// DefaultFreshnessWindow is how long a fetched collection is served without
// a new remote read.
const DefaultFreshnessWindow = 2 * time.Minute

type entry struct {
	ownerID   string
	tasks     []task.Task
	fetchedAt time.Time
}

// Cache is the session-scoped task cache.
type Cache struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	entry  *entry

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithFreshnessWindow overrides DefaultFreshnessWindow.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.window = d
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		window: DefaultFreshnessWindow,
		now:    time.Now,
		subs:   make(map[int]func()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FreshnessWindow returns the configured window.
func (c *Cache) FreshnessWindow() time.Duration {
	return c.window
}

// Get returns a copy of the cached tasks if the entry belongs to ownerID and
// was fetched less than the freshness window ago.
func (c *Cache) Get(ownerID string) ([]task.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.entry.ownerID != ownerID {
		return nil, false
	}
	if c.now().Sub(c.entry.fetchedAt) >= c.window {
		return nil, false
	}
	return task.CloneAll(c.entry.tasks), true
}

// Lookup returns the cached tasks for ownerID regardless of age, along with
// the time they were fetched.
func (c *Cache) Lookup(ownerID string) ([]task.Task, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.entry.ownerID != ownerID {
		return nil, time.Time{}, false
	}
	return task.CloneAll(c.entry.tasks), c.entry.fetchedAt, true
}

// Snapshot returns the cached tasks for whichever owner is cached.
func (c *Cache) Snapshot() []task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return nil
	}
	return task.CloneAll(c.entry.tasks)
}

// Owner returns the identity the cached entry belongs to, or "".
func (c *Cache) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return ""
	}
	return c.entry.ownerID
}

// Put replaces the cached collection and stamps the fetch time.
func (c *Cache) Put(ownerID string, tasks []task.Task) {
	c.mu.Lock()
	c.entry = &entry{
		ownerID:   ownerID,
		tasks:     task.CloneAll(tasks),
		fetchedAt: c.now(),
	}
	c.mu.Unlock()
	c.notify()
}

// Task returns a copy of the cached task with the given id.
func (c *Cache) Task(id string) (task.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return task.Task{}, false
	}
	for _, t := range c.entry.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return task.Task{}, false
}

// Patch applies fn to the cached task with the given id in place. The fetch
// timestamp is left alone. It reports false when the task is not cached.
func (c *Cache) Patch(id string, fn func(*task.Task)) bool {
	c.mu.Lock()
	if c.entry == nil {
		c.mu.Unlock()
		return false
	}
	found := false
	for i := range c.entry.tasks {
		if c.entry.tasks[i].ID == id {
			fn(&c.entry.tasks[i])
			found = true
			break
		}
	}
	c.mu.Unlock()
	if found {
		c.notify()
	}
	return found
}

// InvalidateIfOwnerChanged clears the cache when ownerID differs from the
// cached owner. It reports whether anything was cleared.
func (c *Cache) InvalidateIfOwnerChanged(ownerID string) bool {
	c.mu.Lock()
	if c.entry == nil || c.entry.ownerID == ownerID {
		c.mu.Unlock()
		return false
	}
	c.entry = nil
	c.mu.Unlock()
	c.notify()
	return true
}

// Invalidate drops the cached entry unconditionally.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	had := c.entry != nil
	c.entry = nil
	c.mu.Unlock()
	if had {
		c.notify()
	}
}

// Subscribe registers fn to run after every change. Callbacks run on the
// goroutine that made the change, outside the cache lock.
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
