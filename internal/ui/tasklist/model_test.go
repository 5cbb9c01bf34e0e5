package tasklist_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/keys"
	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/timer"
	"github.com/nhle/timetrack/internal/ui/tasklist"
)

// manualScheduler never ticks on its own.
type manualScheduler struct{}

func (manualScheduler) Every(time.Duration, func()) func() { return func() {} }

func newList(t *testing.T, reg *timer.Registry, tasks ...model.Task) tasklist.Model {
	t.Helper()
	m := tasklist.New(reg, keys.DefaultKeyMap(), 100, 20)
	m, _ = m.Update(tasklist.TasksLoadedMsg{Tasks: tasks})
	return m
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestRendersRunningTimer(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	reg := timer.NewRegistry(
		timer.WithScheduler(manualScheduler{}),
		timer.WithClock(func() time.Time { return now }),
	)
	reg.InitTimer("t1", "log-1", now.Add(-(time.Hour + 2*time.Minute + 3*time.Second)))

	m := newList(t, reg,
		model.Task{ID: "t1", Title: "Running task", Status: model.TaskStatusInProgress, TotalTime: 300},
		model.Task{ID: "t2", Title: "Idle task", Status: model.TaskStatusPending},
	)

	view := m.View()
	if !strings.Contains(view, "01:02:03") {
		t.Errorf("view lacks running clock:\n%s", view)
	}
	if !strings.Contains(view, "5m") {
		t.Errorf("view lacks total:\n%s", view)
	}
	if strings.Count(view, "●") != 1 {
		t.Errorf("want exactly one running marker:\n%s", view)
	}
}

func TestKeysEmitTaskActions(t *testing.T) {
	task := model.Task{ID: "t1", Title: "One", Status: model.TaskStatusPending}
	m := newList(t, timer.NewRegistry(timer.WithScheduler(manualScheduler{})), task)

	tests := []struct {
		key  rune
		want interface{}
	}{
		{'s', tasklist.ToggleTimerMsg{Task: task}},
		{' ', tasklist.ToggleTimerMsg{Task: task}},
		{'e', tasklist.EditTaskMsg{Task: task}},
		{'x', tasklist.ToggleCompleteMsg{Task: task}},
		{'d', tasklist.DeleteTaskMsg{Task: task}},
		{'\n', tasklist.OpenTaskMsg{Task: task}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			msg := runeKey(tt.key)
			switch tt.key {
			case ' ':
				msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
			case '\n':
				msg = tea.KeyMsg{Type: tea.KeyEnter}
			}
			_, cmd := m.Update(msg)
			if cmd == nil {
				t.Fatal("no command")
			}
			got := cmd()
			if gotTask, ok := taskOf(got); !ok || gotTask.ID != "t1" || fmt.Sprintf("%T", got) != fmt.Sprintf("%T", tt.want) {
				t.Errorf("msg = %#v, want %T", got, tt.want)
			}
		})
	}
}

func TestEmptyList(t *testing.T) {
	m := newList(t, timer.NewRegistry(timer.WithScheduler(manualScheduler{})))
	if _, cmd := m.Update(runeKey('s')); cmd != nil {
		if _, ok := cmd().(tasklist.ToggleTimerMsg); ok {
			t.Error("toggle emitted with no tasks")
		}
	}
	if !strings.Contains(m.View(), "No tasks yet") {
		t.Errorf("empty view = %q", m.View())
	}
}

func taskOf(msg tea.Msg) (model.Task, bool) {
	switch m := msg.(type) {
	case tasklist.ToggleTimerMsg:
		return m.Task, true
	case tasklist.EditTaskMsg:
		return m.Task, true
	case tasklist.ToggleCompleteMsg:
		return m.Task, true
	case tasklist.DeleteTaskMsg:
		return m.Task, true
	case tasklist.OpenTaskMsg:
		return m.Task, true
	}
	return model.Task{}, false
}
