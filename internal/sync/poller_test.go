package sync_test

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/sync"
)

type fakeFetcher struct {
	mu      gosync.Mutex
	calls   int
	sum     *model.Summary
	tasks   []model.Task
	sumErr  error
	taskErr error
}

func (f *fakeFetcher) Summary(context.Context, string, string) (*model.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sum, f.sumErr
}

func (f *fakeFetcher) ListTasks(context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, f.taskErr
}

// receive runs cmd with a timeout and returns its SyncResultMsg.
func receive(t *testing.T, run func() interface{}) sync.SyncResultMsg {
	t.Helper()
	ch := make(chan interface{}, 1)
	go func() { ch <- run() }()
	select {
	case msg := <-ch:
		res, ok := msg.(sync.SyncResultMsg)
		if !ok {
			t.Fatalf("msg = %T, want SyncResultMsg", msg)
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll result")
	}
	return sync.SyncResultMsg{}
}

func TestPoller_PollsImmediately(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f := &fakeFetcher{
		sum: &model.Summary{
			Date: "2026-10-18",
			ActiveTimers: []model.ActiveTimer{
				{ID: "log-1", TaskID: "task-1", StartTime: start},
			},
		},
		tasks: []model.Task{{ID: "task-1", Title: "One"}},
	}
	p := sync.New(f, time.Hour)
	cmd := p.Start()
	defer p.Stop()

	if again := p.Start(); again != nil {
		t.Error("second Start returned a command")
	}

	res := receive(t, func() interface{} { return cmd() })
	if res.Error != nil {
		t.Fatalf("Error = %v", res.Error)
	}
	if res.Summary.Date != "2026-10-18" || len(res.Tasks) != 1 {
		t.Errorf("result = %+v", res)
	}
	open := res.OpenTimers()
	if len(open) != 1 || open[0].TaskID != "task-1" || open[0].TimeLogID != "log-1" || !open[0].StartTime.Equal(start) {
		t.Errorf("OpenTimers = %+v", open)
	}
	if st := p.Status(); st.State != sync.SyncIdle || st.LastSync.IsZero() {
		t.Errorf("status = %+v", st)
	}
}

func TestPoller_RefreshPollsAgain(t *testing.T) {
	f := &fakeFetcher{sum: &model.Summary{}}
	p := sync.New(f, time.Hour)
	cmd := p.Start()
	defer p.Stop()

	receive(t, func() interface{} { return cmd() })
	p.Refresh()
	receive(t, func() interface{} { return p.WaitForNextResult()() })

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestPoller_ReportsErrors(t *testing.T) {
	tests := []struct {
		name       string
		fetcher    *fakeFetcher
		wantUnauth bool
	}{
		{"summary fails", &fakeFetcher{sumErr: errors.New("down")}, false},
		{"tasks fail", &fakeFetcher{sum: &model.Summary{}, taskErr: errors.New("down")}, false},
		{"session expired", &fakeFetcher{sumErr: fmt.Errorf("GET /summary: %w", model.ErrUnauthorized)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sync.New(tt.fetcher, time.Hour)
			cmd := p.Start()
			defer p.Stop()

			res := receive(t, func() interface{} { return cmd() })
			if res.Error == nil {
				t.Fatal("Error = nil")
			}
			if res.Unauthorized != tt.wantUnauth {
				t.Errorf("Unauthorized = %v, want %v", res.Unauthorized, tt.wantUnauth)
			}
			if res.OpenTimers() != nil {
				t.Error("failed poll reported open timers")
			}
			if p.Status().State != sync.SyncError {
				t.Errorf("state = %v, want SyncError", p.Status().State)
			}
		})
	}
}

func TestPoller_RestartAfterStop(t *testing.T) {
	f := &fakeFetcher{sum: &model.Summary{}}
	p := sync.New(f, time.Hour)

	cmd := p.Start()
	receive(t, func() interface{} { return cmd() })
	p.Stop()
	p.Stop()

	cmd = p.Start()
	if cmd == nil {
		t.Fatal("Start after Stop returned nil")
	}
	defer p.Stop()
	receive(t, func() interface{} { return cmd() })
}

func TestPoller_StopReleasesSubscribers(t *testing.T) {
	f := &fakeFetcher{sum: &model.Summary{}}
	p := sync.New(f, time.Hour)

	cmd := p.Start()
	first := receive(t, func() interface{} { return cmd() })
	if first.Run == 0 || first.Run != p.Run() {
		t.Fatalf("Run = %d, poller run = %d", first.Run, p.Run())
	}

	leftover := p.WaitForNextResult()
	p.Stop()
	if p.Run() != 0 {
		t.Errorf("Run after Stop = %d, want 0", p.Run())
	}
	if p.WaitForNextResult() != nil {
		t.Error("WaitForNextResult on a stopped poller returned a command")
	}

	done := make(chan interface{}, 1)
	go func() { done <- leftover() }()
	select {
	case msg := <-done:
		if msg != nil {
			t.Errorf("subscriber of stopped run got %T, want nil", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber of stopped run still blocked")
	}

	cmd = p.Start()
	defer p.Stop()
	second := receive(t, func() interface{} { return cmd() })
	if second.Run == first.Run || second.Run != p.Run() {
		t.Errorf("second run = %d, first = %d, poller = %d", second.Run, first.Run, p.Run())
	}
}
