// Package stats derives per-status counts from the session cache. Bursts of
// cache changes are debounced into a single recomputation.
package stats

import (
	"sync"
	"time"

	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// DefaultDelay is the coalescing window for recomputations.
const DefaultDelay = 100 * time.Millisecond

// Stats is the derived summary of a task collection.
type Stats struct {
	Total    int
	ByStatus [task.NumStatuses]int
}

// Count returns the number of tasks in status s.
func (s Stats) Count(st task.Status) int {
	return s.ByStatus[st.Index()]
}

// Compute counts tasks by canonical status.
func Compute(tasks []task.Task) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		s.ByStatus[t.Status.Index()]++
	}
	return s
}

// Aggregator keeps Stats up to date with a cache.
type Aggregator struct {
	cache    *cache.Cache
	deb      *Debouncer
	onUpdate func(Stats)
	unsub    func()

	mu     sync.Mutex
	latest Stats
	runs   int
}

// Option configures an Aggregator.
type Option func(*aggregatorOptions)

type aggregatorOptions struct {
	delay    time.Duration
	sched    Scheduler
	onUpdate func(Stats)
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *aggregatorOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithScheduler replaces the real timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(o *aggregatorOptions) { o.sched = s }
}

// WithOnUpdate registers a callback run after every recomputation.
func WithOnUpdate(fn func(Stats)) Option {
	return func(o *aggregatorOptions) { o.onUpdate = fn }
}

// NewAggregator subscribes to c and computes the initial stats immediately.
func NewAggregator(c *cache.Cache, opts ...Option) *Aggregator {
	o := aggregatorOptions{delay: DefaultDelay}
	for _, fn := range opts {
		fn(&o)
	}
	a := &Aggregator{
		cache:    c,
		onUpdate: o.onUpdate,
		latest:   Compute(c.Snapshot()),
	}
	a.deb = NewDebouncer(o.delay, o.sched, a.recompute)
	a.unsub = c.Subscribe(a.deb.Trigger)
	return a
}

// Latest returns the most recently computed stats.
func (a *Aggregator) Latest() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// Runs returns how many debounced recomputations have fired.
func (a *Aggregator) Runs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

// Flush forces a pending recomputation to run now.
func (a *Aggregator) Flush() {
	a.deb.Flush()
}

// Close unsubscribes from the cache and drops any pending recomputation.
func (a *Aggregator) Close() {
	a.unsub()
	a.deb.Stop()
}

func (a *Aggregator) recompute() {
	s := Compute(a.cache.Snapshot())
	a.mu.Lock()
	a.latest = s
	a.runs++
	a.mu.Unlock()
	if a.onUpdate != nil {
		a.onUpdate(s)
	}
}
