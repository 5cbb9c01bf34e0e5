package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	return fmt.Sprintf("%s | %s tracked", i.Task.Status, timer.FormatTotal(i.Task.TotalTime))
}

// TimerSource looks up the running timer for a task.
type TimerSource interface {
	Get(taskID string) (timer.Entry, bool)
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
// Running timers are read from the registry at render time, so every
// re-render shows the current elapsed time.
type ItemDelegate struct {
	timers TimerSource
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line:
//
//	● DOING  Write report        1h 5m   00:12:03
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	task := ti.Task
	isSelected := index == m.Index()

	marker := " "
	clock := ""
	if d.timers != nil {
		if e, running := d.timers.Get(task.ID); running {
			if e.Pending {
				marker = theme.PendingTimerStyle.Render("◌")
				clock = theme.PendingTimerStyle.Render(timer.FormatClock(e.ElapsedTime))
			} else {
				marker = theme.TimerStyle.Render("●")
				clock = theme.TimerStyle.Render(timer.FormatClock(e.ElapsedTime))
			}
		}
	}

	status := theme.StatusStyle(task.Status).
		Width(7).
		Render(theme.StatusLabel(task.Status))

	title := lipgloss.NewStyle().Width(titleWidth(m.Width())).MaxWidth(titleWidth(m.Width())).Render(task.Title)
	total := theme.DimmedStyle.Width(9).Render(timer.FormatTotal(task.TotalTime))

	line := fmt.Sprintf("%s %s %s %s %s", marker, status, title, total, clock)

	if task.Status == model.TaskStatusCompleted && clock == "" {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// titleWidth leaves room for the marker, status, total and clock
// columns.
func titleWidth(listWidth int) int {
	w := listWidth - 2 - 8 - 10 - 10 - 4
	if w < 10 {
		return 10
	}
	return w
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
