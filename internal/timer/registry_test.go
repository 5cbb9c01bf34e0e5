package timer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/nhle/timetrack/internal/timer"
)

// fakeScheduler records tick sources and fires them on demand.
type fakeScheduler struct {
	mu      sync.Mutex
	sources []*fakeSource
}

type fakeSource struct {
	fn       func()
	canceled bool
}

func (s *fakeScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := &fakeSource{fn: fn}
	s.sources = append(s.sources, src)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		src.canceled = true
	}
}

// active returns the number of sources not yet canceled.
func (s *fakeScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, src := range s.sources {
		if !src.canceled {
			n++
		}
	}
	return n
}

// fire runs every source once, canceled ones included, the way a real
// ticker may deliver one last tick after cancel.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	sources := append([]*fakeSource(nil), s.sources...)
	s.mu.Unlock()
	for _, src := range sources {
		src.fn()
	}
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*timer.Registry, *fakeScheduler, *fakeClock) {
	sched := &fakeScheduler{}
	clock := &fakeClock{now: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)}
	r := timer.NewRegistry(timer.WithScheduler(sched), timer.WithClock(clock.Now))
	return r, sched, clock
}

func TestStartTimer_TicksFromZero(t *testing.T) {
	r, sched, clock := newTestRegistry()

	r.StartTimer("task-1", "log-1", clock.Now())
	e, ok := r.Get("task-1")
	if !ok || e.ElapsedTime != 0 || e.Pending {
		t.Fatalf("entry = %+v, %v", e, ok)
	}

	clock.Advance(3 * time.Second)
	sched.fire()

	e, _ = r.Get("task-1")
	if e.ElapsedTime != 3 {
		t.Errorf("ElapsedTime = %d, want 3", e.ElapsedTime)
	}
	if sched.active() != 1 {
		t.Errorf("active sources = %d, want 1", sched.active())
	}
}

func TestStartTimer_ReplacesExistingEntry(t *testing.T) {
	r, sched, clock := newTestRegistry()

	r.StartTimer("task-1", "log-1", clock.Now())
	clock.Advance(10 * time.Second)
	r.StartTimer("task-1", "log-2", clock.Now())

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if sched.active() != 1 {
		t.Fatalf("active sources = %d, want 1", sched.active())
	}

	// The stale source's late tick must not disturb the new entry.
	clock.Advance(2 * time.Second)
	sched.fire()
	e, _ := r.Get("task-1")
	if e.TimeLogID != "log-2" || e.ElapsedTime != 2 {
		t.Errorf("entry = %+v, want log-2 at 2s", e)
	}
}

func TestInitTimer_ComputesElapsedImmediately(t *testing.T) {
	r, _, clock := newTestRegistry()

	r.InitTimer("task-1", "log-1", clock.Now().Add(-90*time.Second))
	e, ok := r.Get("task-1")
	if !ok || e.ElapsedTime != 90 {
		t.Fatalf("entry = %+v, want elapsed 90", e)
	}
}

func TestInitTimer_TwiceKeepsOneEntryAndOneSource(t *testing.T) {
	r, sched, clock := newTestRegistry()
	start := clock.Now().Add(-time.Minute)

	r.InitTimer("task-1", "log-1", start)
	r.InitTimer("task-1", "log-1", start)

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if sched.active() != 1 || len(sched.sources) != 1 {
		t.Errorf("sources = %d (active %d), want exactly 1", len(sched.sources), sched.active())
	}
}

func TestInitTimer_DoesNotReplaceRunningEntry(t *testing.T) {
	r, _, clock := newTestRegistry()

	r.StartTimer("task-1", "log-1", clock.Now())
	r.InitTimer("task-1", "log-other", clock.Now().Add(-time.Hour))

	e, _ := r.Get("task-1")
	if e.TimeLogID != "log-1" {
		t.Errorf("TimeLogID = %q, want log-1", e.TimeLogID)
	}
}

func TestStopTimer(t *testing.T) {
	r, sched, clock := newTestRegistry()

	r.StartTimer("task-1", "log-1", clock.Now())
	r.StartTimer("task-2", "log-2", clock.Now())
	r.StopTimer("task-1")

	if _, ok := r.Get("task-1"); ok {
		t.Error("task-1 still registered")
	}
	if sched.active() != 1 {
		t.Errorf("active sources = %d, want 1", sched.active())
	}

	// Ticks after stop do not resurrect the entry.
	sched.fire()
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	// Stopping an unknown task is a no-op.
	r.StopTimer("nope")
}

func TestClearAll(t *testing.T) {
	r, sched, clock := newTestRegistry()

	r.StartTimer("task-1", "log-1", clock.Now())
	r.InitTimer("task-2", "log-2", clock.Now())
	r.StartTimer("task-3", "", clock.Now())
	r.ClearAll()

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	if sched.active() != 0 {
		t.Errorf("active sources = %d, want 0", sched.active())
	}
}

func TestPendingThenConfirm(t *testing.T) {
	r, sched, clock := newTestRegistry()
	local := clock.Now()

	r.StartTimer("task-1", "", local)
	e, _ := r.Get("task-1")
	if !e.Pending {
		t.Fatal("optimistic entry should be pending")
	}

	server := local.Add(-2 * time.Second)
	if !r.Confirm("task-1", "log-1", server) {
		t.Fatal("Confirm reported no entry")
	}
	e, _ = r.Get("task-1")
	if e.Pending || e.TimeLogID != "log-1" || !e.StartTime.Equal(server) || e.ElapsedTime != 2 {
		t.Errorf("confirmed entry = %+v", e)
	}
	if sched.active() != 1 {
		t.Errorf("active sources = %d, want 1", sched.active())
	}

	if r.Confirm("task-2", "log-2", server) {
		t.Error("Confirm on unknown task reported true")
	}
}

func TestReconcile(t *testing.T) {
	r, sched, clock := newTestRegistry()
	now := clock.Now()

	r.StartTimer("stale", "log-stale", now) // server stopped it elsewhere
	r.StartTimer("kept", "log-kept", now)   // still open
	r.StartTimer("moved", "log-old", now)   // server has a different log
	r.StartTimer("optimistic", "", now)     // request in flight

	r.Reconcile([]timer.OpenTimer{
		{TaskID: "kept", TimeLogID: "log-kept", StartTime: now},
		{TaskID: "moved", TimeLogID: "log-new", StartTime: now.Add(-30 * time.Second)},
		{TaskID: "fresh", TimeLogID: "log-fresh", StartTime: now.Add(-5 * time.Second)},
	})

	if _, ok := r.Get("stale"); ok {
		t.Error("stale entry survived reconcile")
	}
	if _, ok := r.Get("optimistic"); !ok {
		t.Error("pending entry dropped by reconcile")
	}
	if e, _ := r.Get("moved"); e.TimeLogID != "log-new" || e.ElapsedTime != 30 {
		t.Errorf("moved = %+v", e)
	}
	if e, _ := r.Get("fresh"); e.TimeLogID != "log-fresh" || e.ElapsedTime != 5 {
		t.Errorf("fresh = %+v", e)
	}
	if r.Len() != 4 {
		t.Errorf("Len = %d, want 4", r.Len())
	}
	if sched.active() != r.Len() {
		t.Errorf("active sources = %d, want one per entry (%d)", sched.active(), r.Len())
	}
}

func TestSnapshot_OrderedByStart(t *testing.T) {
	r, _, clock := newTestRegistry()
	now := clock.Now()

	r.InitTimer("b", "log-b", now.Add(-time.Minute))
	r.InitTimer("a", "log-a", now.Add(-time.Hour))

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].TaskID != "a" || snap[1].TaskID != "b" {
		t.Fatalf("Snapshot = %+v", snap)
	}
}

func TestTickerScheduler_CancelStopsTicks(t *testing.T) {
	var (
		mu    sync.Mutex
		ticks int
	)
	cancel := timer.TickerScheduler{}.Every(5*time.Millisecond, func() {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := ticks
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	cancel() // idempotent

	// Allow one in-flight tick to land, then ensure the count is frozen.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	frozen := ticks
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if frozen < 2 {
		t.Fatalf("ticks = %d, want at least 2 before cancel", frozen)
	}
	if ticks != frozen {
		t.Errorf("ticks advanced after cancel: %d -> %d", frozen, ticks)
	}
}

func TestFormat(t *testing.T) {
	if got := timer.FormatClock(3725); got != "01:02:05" {
		t.Errorf("FormatClock = %q", got)
	}
	if got := timer.FormatTotal(3725); got != "1h 2m" {
		t.Errorf("FormatTotal = %q", got)
	}
	if got := timer.FormatTotal(59); got != "0m" {
		t.Errorf("FormatTotal = %q", got)
	}
}
