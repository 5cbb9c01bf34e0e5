package summary

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/timer"
)

// staticTimers serves fixed registry entries.
type staticTimers map[string]timer.Entry

func (s staticTimers) Get(taskID string) (timer.Entry, bool) {
	e, ok := s[taskID]
	return e, ok
}

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestView_RendersSummary(t *testing.T) {
	timers := staticTimers{"t1": {TaskID: "t1", TimeLogID: "tl-1", ElapsedTime: 3723}}
	m := New(timers, 100, 40)

	m, _ = m.Update(LoadedMsg{Summary: &model.Summary{
		Date:           "2026-03-02",
		TotalTime:      5400,
		CompletedTasks: 2,
		TasksWorkedOn:  1,
		ActiveTimers: []model.ActiveTimer{
			{ID: "tl-1", TaskID: "t1", TaskTitle: "Write report", ElapsedTime: 60},
		},
		TimeLogs: []model.SummaryLog{
			{ID: "tl-0", TaskID: "t2", TaskTitle: "Review", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10*time.Hour + 30*time.Minute), Duration: 5400},
		},
	}})

	view := m.View()
	for _, want := range []string{"1h 30m", "Write report", "01:02:03", "Review"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_ErrorAndLoading(t *testing.T) {
	m := New(nil, 80, 20)
	if !strings.Contains(m.renderContent(), "Loading summary") {
		t.Error("expected loading state")
	}

	m, _ = m.Update(LoadedMsg{Err: errTest})
	if !strings.Contains(m.View(), "Could not load summary") {
		t.Error("expected error message")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("server down")

func TestDateNavigation(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.Local)
	m := New(nil, 80, 20)
	m.now = func() time.Time { return now }

	press := func(m Model, key string) (Model, DateChangedMsg) {
		t.Helper()
		m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		if cmd == nil {
			t.Fatalf("key %q produced no command", key)
		}
		msg, ok := cmd().(DateChangedMsg)
		if !ok {
			t.Fatalf("key %q did not change the date", key)
		}
		return m, msg
	}

	m, msg := press(m, "[")
	if msg.Date != "2026-03-01" || m.Date() != "2026-03-01" {
		t.Errorf("previous day = %q / %q", msg.Date, m.Date())
	}

	m, msg = press(m, "[")
	if msg.Date != "2026-02-28" {
		t.Errorf("previous day = %q, want 2026-02-28", msg.Date)
	}

	m, msg = press(m, "t")
	if msg.Date != "" || m.Date() != "" {
		t.Errorf("today = %q / %q, want empty", msg.Date, m.Date())
	}

	// Today is the latest day.
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")}); cmd != nil {
		t.Error("moving past today produced a command")
	}

	m.SetDate("2026-03-01")
	_, msg = press(m, "]")
	if msg.Date != "" {
		t.Errorf("next day from yesterday = %q, want today", msg.Date)
	}
}
