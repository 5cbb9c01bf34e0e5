// Package timer keeps the client-side view of running timers: which
// tasks are being tracked in this session, since when, and how long
// they have been running. It never talks to the server; callers persist
// starts and stops and feed confirmed server state back in.
package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/nhle/timetrack/internal/model"
)

// TickInterval is how often a running entry's elapsed time is refreshed.
const TickInterval = time.Second

// Entry is one running timer as displayed to the user.
type Entry struct {
	TaskID      string
	TimeLogID   string
	StartTime   time.Time
	ElapsedTime int64

	// Pending marks an optimistic entry the server has not confirmed
	// yet; TimeLogID is empty until Confirm.
	Pending bool
}

// OpenTimer is a running time log as reported by the server.
type OpenTimer struct {
	TaskID    string
	TimeLogID string
	StartTime time.Time
}

// entry pairs an Entry with the cancel function of its tick source.
// gen distinguishes the current tick source from canceled ones whose
// goroutine may still deliver one last tick.
type entry struct {
	Entry
	gen    uint64
	cancel func()
}

// Registry maps task IDs to running timers. Each entry owns exactly one
// tick source; replacing or removing an entry cancels its source first.
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*entry
	sched    Scheduler
	now      func() time.Time
	interval time.Duration
	gen      uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithScheduler sets the tick source factory. Defaults to TickerScheduler.
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.sched = s }
}

// WithClock sets the clock used to compute elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		sched:    TickerScheduler{},
		now:      time.Now,
		interval: TickInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartTimer registers a running timer for taskID with elapsed time 0,
// replacing any existing entry for the task. An empty timeLogID records
// an optimistic, pending entry to be confirmed once the server answers.
func (r *Registry) StartTimer(taskID, timeLogID string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(taskID)
	r.addLocked(Entry{
		TaskID:    taskID,
		TimeLogID: timeLogID,
		StartTime: startTime,
		Pending:   timeLogID == "",
	})
}

// InitTimer resumes a timer the server reports as running, e.g. after a
// reload. The elapsed time is computed immediately. It is a no-op when
// the task already has an entry, so repeated calls never stack tick
// sources.
func (r *Registry) InitTimer(taskID, timeLogID string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[taskID]; ok {
		return
	}
	r.addLocked(Entry{
		TaskID:      taskID,
		TimeLogID:   timeLogID,
		StartTime:   startTime,
		ElapsedTime: model.ElapsedSeconds(startTime, r.now()),
	})
}

// Confirm replaces a pending entry's ID and start time with the values
// the server assigned, keeping its tick source. It reports whether an
// entry for taskID existed.
func (r *Registry) Confirm(taskID, timeLogID string, startTime time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[taskID]
	if !ok {
		return false
	}
	e.TimeLogID = timeLogID
	e.StartTime = startTime
	e.Pending = false
	e.ElapsedTime = model.ElapsedSeconds(startTime, r.now())
	return true
}

// StopTimer cancels the task's tick source and removes its entry. It
// does not persist anything.
func (r *Registry) StopTimer(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(taskID)
}

// ClearAll cancels every tick source and empties the registry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for taskID := range r.entries {
		r.removeLocked(taskID)
	}
}

// Reconcile aligns the registry with the server's running time logs.
// Every open log gets an entry; a confirmed entry whose log the server
// no longer reports is stopped, and one tracking a different log is
// replaced. Pending entries are left for Confirm or StopTimer.
func (r *Registry) Reconcile(open []OpenTimer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTask := make(map[string]OpenTimer, len(open))
	for _, o := range open {
		byTask[o.TaskID] = o
	}

	for taskID, e := range r.entries {
		if e.Pending {
			continue
		}
		o, ok := byTask[taskID]
		if !ok || o.TimeLogID != e.TimeLogID {
			r.removeLocked(taskID)
		}
	}

	for _, o := range open {
		if _, ok := r.entries[o.TaskID]; ok {
			continue
		}
		r.addLocked(Entry{
			TaskID:      o.TaskID,
			TimeLogID:   o.TimeLogID,
			StartTime:   o.StartTime,
			ElapsedTime: model.ElapsedSeconds(o.StartTime, r.now()),
		})
	}
}

// Get returns the entry for taskID.
func (r *Registry) Get(taskID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[taskID]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Snapshot returns all entries ordered by start time.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Len returns the number of running timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// addLocked registers e and starts its tick source. r.mu must be held
// and taskID must not have an entry.
func (r *Registry) addLocked(e Entry) {
	r.gen++
	gen := r.gen
	taskID := e.TaskID

	ent := &entry{Entry: e, gen: gen}
	r.entries[taskID] = ent
	ent.cancel = r.sched.Every(r.interval, func() { r.tick(taskID, gen) })
}

// removeLocked cancels the task's tick source and drops its entry.
// r.mu must be held.
func (r *Registry) removeLocked(taskID string) {
	e, ok := r.entries[taskID]
	if !ok {
		return
	}
	e.cancel()
	delete(r.entries, taskID)
}

// tick refreshes the elapsed time of the entry started as generation gen.
func (r *Registry) tick(taskID string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[taskID]
	if !ok || e.gen != gen {
		return
	}
	e.ElapsedTime = model.ElapsedSeconds(e.StartTime, r.now())
}
