package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/minhancr123/Task-Management-sub000/internal/cache"
	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

type reply struct {
	tasks []task.Task
	err   error
}

type pendingCall struct {
	owner string
	reply chan reply
}

// pendingSource hands every fetch to the test, which decides when and how it
// resolves.
type pendingSource struct {
	calls chan *pendingCall
}

func newPendingSource() *pendingSource {
	return &pendingSource{calls: make(chan *pendingCall, 8)}
}

func (s *pendingSource) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	pc := &pendingCall{owner: ownerID, reply: make(chan reply, 1)}
	s.calls <- pc
	r := <-pc.reply
	return r.tasks, r.err
}

func (s *pendingSource) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case pc := <-s.calls:
		return pc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (s *pendingSource) expectNone(t *testing.T) {
	t.Helper()
	select {
	case pc := <-s.calls:
		t.Fatalf("unexpected fetch for %s", pc.owner)
	case <-time.After(50 * time.Millisecond):
	}
}

type countingSource struct {
	calls atomic.Int32
	tasks []task.Task
	err   error
}

func (s *countingSource) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	s.calls.Add(1)
	return s.tasks, s.err
}

type outcome struct {
	res Result
	err error
}

func goFetch(c *Coordinator, owner string, force bool) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		res, err := c.Fetch(context.Background(), owner, force)
		ch <- outcome{res, err}
	}()
	return ch
}

func newCoordinator(src Source) (*Coordinator, *cache.Cache) {
	logger, _ := test.NewNullLogger()
	c := cache.New()
	return New(src, c, logger), c
}

func TestFetch_StaleResponseRejected(t *testing.T) {
	src := newPendingSource()
	co, c := newCoordinator(src)

	doneA := goFetch(co, "alice", true)
	callA := src.next(t)
	doneB := goFetch(co, "alice", true)
	callB := src.next(t)

	callB.reply <- reply{tasks: []task.Task{{ID: "b", Title: "from B"}}}
	outB := <-doneB
	if outB.err != nil || outB.res.Superseded {
		t.Fatalf("expected B to apply, got %+v %v", outB.res, outB.err)
	}

	callA.reply <- reply{tasks: []task.Task{{ID: "a", Title: "from A"}}}
	outA := <-doneA
	if !outA.res.Superseded {
		t.Fatalf("expected A to be superseded, got %+v", outA.res)
	}

	tasks, ok := c.Get("alice")
	if !ok || len(tasks) != 1 || tasks[0].ID != "b" {
		t.Fatalf("cache should hold B's data, got %+v", tasks)
	}
	if co.InFlight() {
		t.Fatal("no fetch should be in flight")
	}
}

func TestFetch_StaleFailureDoesNotTouchCache(t *testing.T) {
	src := newPendingSource()
	co, c := newCoordinator(src)

	doneA := goFetch(co, "alice", true)
	callA := src.next(t)
	doneB := goFetch(co, "alice", true)
	callB := src.next(t)

	callB.reply <- reply{tasks: []task.Task{{ID: "b"}}}
	<-doneB
	callA.reply <- reply{err: errors.New("boom")}
	outA := <-doneA
	if !outA.res.Superseded || outA.err == nil {
		t.Fatalf("expected superseded failure, got %+v %v", outA.res, outA.err)
	}
	if tasks, _ := c.Get("alice"); len(tasks) != 1 {
		t.Fatalf("cache changed by stale failure: %+v", tasks)
	}
}

func TestFetch_FreshCacheSkipsNetwork(t *testing.T) {
	src := &countingSource{tasks: []task.Task{{ID: "t1"}}}
	co, _ := newCoordinator(src)

	if _, err := co.Fetch(context.Background(), "alice", false); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	res, err := co.Fetch(context.Background(), "alice", false)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !res.FromCache || len(res.Tasks) != 1 {
		t.Fatalf("expected cache hit, got %+v", res)
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("expected 1 network call, got %d", n)
	}

	if _, err := co.Fetch(context.Background(), "alice", true); err != nil {
		t.Fatalf("forced fetch: %v", err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("forced fetch must hit the network, got %d calls", n)
	}
}

func TestFetch_NonForcedJoinsInFlight(t *testing.T) {
	src := newPendingSource()
	co, _ := newCoordinator(src)

	first := goFetch(co, "alice", true)
	pc := src.next(t)

	second := goFetch(co, "alice", false)
	src.expectNone(t)

	pc.reply <- reply{tasks: []task.Task{{ID: "t1"}}}
	o1, o2 := <-first, <-second
	if o1.err != nil || o2.err != nil {
		t.Fatalf("unexpected errors: %v %v", o1.err, o2.err)
	}
	if len(o2.res.Tasks) != 1 || o2.res.Tasks[0].ID != "t1" {
		t.Fatalf("waiter got %+v", o2.res)
	}
	src.expectNone(t)
}

func TestFetch_FailureFallsBackToCache(t *testing.T) {
	src := &countingSource{tasks: []task.Task{{ID: "t1"}}}
	co, _ := newCoordinator(src)
	if _, err := co.Fetch(context.Background(), "alice", false); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	src.err = errors.New("store unavailable")
	res, err := co.Fetch(context.Background(), "alice", true)
	if err == nil {
		t.Fatal("expected error to surface")
	}
	if !res.Stale || len(res.Tasks) != 1 {
		t.Fatalf("expected stale fallback, got %+v", res)
	}
}

func TestFetch_FailureWithoutCacheIsEmpty(t *testing.T) {
	src := &countingSource{err: errors.New("store unavailable")}
	co, _ := newCoordinator(src)

	res, err := co.Fetch(context.Background(), "alice", false)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Tasks == nil || len(res.Tasks) != 0 || res.Stale {
		t.Fatalf("expected empty collection, got %+v", res)
	}
}

func TestFetch_OwnerChangeInvalidates(t *testing.T) {
	src := &countingSource{tasks: []task.Task{{ID: "t1"}}}
	co, c := newCoordinator(src)
	co.Fetch(context.Background(), "alice", false)

	src.tasks = []task.Task{{ID: "b1"}, {ID: "b2"}}
	res, err := co.Fetch(context.Background(), "bob", false)
	if err != nil {
		t.Fatalf("fetch bob: %v", err)
	}
	if res.FromCache || len(res.Tasks) != 2 {
		t.Fatalf("expected network fetch for bob, got %+v", res)
	}
	if c.Owner() != "bob" {
		t.Fatalf("cache owner = %q", c.Owner())
	}
}

func TestEnsureInitialized_SingleFetchUnderDoubleInit(t *testing.T) {
	src := newPendingSource()
	co, _ := newCoordinator(src)

	var wg sync.WaitGroup
	results := make([]outcome, 2)
	start := func(i int) {
		defer wg.Done()
		res, err := co.EnsureInitialized(context.Background(), "alice")
		results[i] = outcome{res, err}
	}

	wg.Add(2)
	go start(0)
	pc := src.next(t)
	go start(1)
	src.expectNone(t)

	pc.reply <- reply{tasks: []task.Task{{ID: "t1"}}}
	wg.Wait()
	src.expectNone(t)

	for i, o := range results {
		if o.err != nil || len(o.res.Tasks) != 1 {
			t.Fatalf("caller %d got %+v %v", i, o.res, o.err)
		}
	}
}

func TestEnsureInitialized_SequentialCallsFetchOnce(t *testing.T) {
	src := &countingSource{tasks: []task.Task{{ID: "t1"}}}
	co, c := newCoordinator(src)

	for i := 0; i < 3; i++ {
		if _, err := co.EnsureInitialized(context.Background(), "alice"); err != nil {
			t.Fatalf("init %d: %v", i, err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", n)
	}

	// Even once the cache goes cold the latch holds for the same owner.
	c.Invalidate()
	co.EnsureInitialized(context.Background(), "alice")
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("latch should hold for alice, got %d calls", n)
	}

	co.EnsureInitialized(context.Background(), "bob")
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("new owner should fetch, got %d calls", n)
	}

	co.Reset()
	c.Invalidate()
	co.EnsureInitialized(context.Background(), "bob")
	if n := src.calls.Load(); n != 3 {
		t.Fatalf("reset should re-arm the latch, got %d calls", n)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	src := newPendingSource()
	co, _ := newCoordinator(src)

	first := goFetch(co, "alice", true)
	pc := src.next(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := co.Fetch(ctx, "alice", false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	pc.reply <- reply{}
	<-first
}
