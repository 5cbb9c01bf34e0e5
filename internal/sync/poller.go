// Package sync keeps the terminal client's view of the server fresh by
// polling the summary and task list in the background and delivering
// the results to the Bubble Tea runtime as messages.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/timer"
)

// DefaultInterval is the summary refresh period.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single poll.
const fetchTimeout = 30 * time.Second

// Fetcher reads the state the poller mirrors.
type Fetcher interface {
	Summary(ctx context.Context, date, tz string) (*model.Summary, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller's last outcome.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a poll completes.
type SyncResultMsg struct {
	Summary *model.Summary
	Tasks   []model.Task
	Error   error

	// Started is when the fetch began. State changed locally after
	// Started may be missing from the result.
	Started time.Time

	// Unauthorized is set when the server rejected the session.
	Unauthorized bool

	// Run identifies the Start call whose poll produced the result.
	Run uint64
}

// OpenTimers returns the running time logs reported by the result, for
// reconciling the client timer registry.
func (m SyncResultMsg) OpenTimers() []timer.OpenTimer {
	if m.Summary == nil {
		return nil
	}
	open := make([]timer.OpenTimer, 0, len(m.Summary.ActiveTimers))
	for _, a := range m.Summary.ActiveTimers {
		open = append(open, timer.OpenTimer{
			TaskID:    a.TaskID,
			TimeLogID: a.ID,
			StartTime: a.StartTime,
		})
	}
	return open
}

// Poller periodically fetches the summary and task list.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	status    SyncStatus
	triggerCh chan struct{}
	mu        gosync.Mutex
	current   *run
	runs      uint64
}

// run is one Start..Stop span of the poller. Results are delivered on
// the run's own channel so a subscriber left over from a stopped run
// never sees a later run's results.
type run struct {
	id      uint64
	results chan SyncResultMsg
	stop    chan struct{}
}

// New creates a Poller. A non-positive interval means DefaultInterval.
func New(f Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:   f,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. The first poll runs immediately. Start on a
// running poller returns nil.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.current != nil {
		p.mu.Unlock()
		return nil
	}
	p.runs++
	r := &run{
		id:      p.runs,
		results: make(chan SyncResultMsg, 16),
		stop:    make(chan struct{}),
	}
	p.current = r
	p.mu.Unlock()

	go p.loop(r)

	return p.waitForResult(r)
}

// Stop halts the polling goroutine and releases the run's subscribers.
// A stopped poller can be started again, e.g. after the next login.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return
	}
	close(p.current.stop)
	p.current = nil
}

// Run identifies the current run, matching SyncResultMsg.Run. It is 0
// while the poller is stopped.
func (p *Poller) Run() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.id
}

func (p *Poller) isCurrent(r *run) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == r
}

// Refresh triggers an immediate poll, e.g. on navigation or after a
// start or stop.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

// Status returns the poller's last outcome.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// loop runs the polling loop until the run is stopped.
func (p *Poller) loop(r *run) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(r)

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			p.poll(r)
		case <-p.triggerCh:
			p.poll(r)
		}
	}
}

// poll performs one fetch and sends a SyncResultMsg on the run's
// result channel.
func (p *Poller) poll(r *run) {
	p.setStatus(r, SyncRunning, nil)
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	sum, err := p.fetcher.Summary(ctx, "", "")
	if err != nil {
		p.fail(r, started, err)
		return
	}
	tasks, err := p.fetcher.ListTasks(ctx)
	if err != nil {
		p.fail(r, started, err)
		return
	}

	p.setStatus(r, SyncIdle, nil)
	r.send(SyncResultMsg{Summary: sum, Tasks: tasks, Started: started, Run: r.id})
}

func (p *Poller) fail(r *run, started time.Time, err error) {
	p.setStatus(r, SyncError, err)
	r.send(SyncResultMsg{
		Error:        err,
		Started:      started,
		Unauthorized: errors.Is(err, model.ErrUnauthorized),
		Run:          r.id,
	})
}

// setStatus updates the poller status. Polls of a stopped run leave it
// alone.
func (p *Poller) setStatus(r *run, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != r {
		return
	}
	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// send delivers msg without blocking; a full buffer drops it.
func (r *run) send(msg SyncResultMsg) {
	select {
	case r.results <- msg:
	default:
	}
}

// waitForResult returns a tea.Cmd that waits for the run's next result.
// It yields nil once the run is stopped.
func (p *Poller) waitForResult(r *run) tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-r.results:
			if !p.isCurrent(r) {
				return nil
			}
			return result
		case <-r.stop:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result of the current run, or nil when the poller is stopped. Call it
// after processing each SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	return p.waitForResult(r)
}
