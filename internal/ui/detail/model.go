package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/keys"
	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries a task and its time logs, newest first.
type DetailLoadedMsg struct {
	Task     *model.Task
	TimeLogs []model.TimeLog
	Err      error
}

// ActionMsg asks the parent to act on the displayed task. Action is one
// of "timer", "edit" or "complete".
type ActionMsg struct {
	Action string
	Task   model.Task
}

// TimerSource looks up the running timer for a task.
type TimerSource interface {
	Get(taskID string) (timer.Entry, bool)
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	logs     []model.TimeLog
	err      error
	timers   TimerSource
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(timers TimerSource, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		timers:   timers,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			m.task = msg.Task
			m.logs = msg.TimeLogs
		}
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}
		case key.Matches(msg, m.keys.ToggleTimer):
			return m, m.action("timer")
		case key.Matches(msg, m.keys.Edit):
			return m, m.action("edit")
		case key.Matches(msg, m.keys.Complete):
			return m, m.action("complete")
		}
	}

	// Re-render so a running timer advances, then let the viewport
	// scroll (j/k, up/down, pgup/pgdn).
	m.viewport.SetContent(m.renderContent())
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.task == nil {
		return nil
	}
	task := *m.task
	return func() tea.Msg {
		return ActionMsg{Action: name, Task: task}
	}
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading task details...")
	}
	if m.err != nil {
		return theme.ErrorStyle.Render("Could not load task: " + m.err.Error())
	}
	if m.task == nil {
		return placeholder.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badge := theme.StatusStyle(task.Status).Render(theme.StatusLabel(task.Status))
	if e, ok := m.runningEntry(); ok {
		style := theme.TimerStyle
		if e.Pending {
			style = theme.PendingTimerStyle
		}
		badge = lipgloss.JoinHorizontal(lipgloss.Top,
			badge, "  ", style.Render("● "+timer.FormatClock(e.ElapsedTime)))
	}
	sections = append(sections, badge, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-9s", label+":")),
			valStyle.Render(value)))
	}
	meta("Tracked", timer.FormatTotal(task.TotalTime))
	if !task.CreatedAt.IsZero() {
		meta("Created", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		meta("Updated", task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Description"))
	body := ""
	if task.Description != nil {
		body = strings.TrimSpace(*task.Description)
	}
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body, "", separator, "")

	sections = append(sections, headerStyle.Render(fmt.Sprintf("Time logs (%d)", len(m.logs))))
	if len(m.logs) == 0 {
		sections = append(sections, metaStyle.Render("Nothing tracked yet"))
	}
	for _, l := range m.logs {
		span := l.StartTime.Local().Format("Jan 2 15:04") + " – "
		duration := "running"
		if l.EndTime != nil {
			span += l.EndTime.Local().Format("15:04")
			if l.Duration != nil {
				duration = timer.FormatTotal(*l.Duration)
			}
		}
		sections = append(sections, fmt.Sprintf("%-24s %s", span, valStyle.Render(duration)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// runningEntry returns the displayed task's registry entry.
func (m Model) runningEntry() (timer.Entry, bool) {
	if m.timers == nil || m.task == nil {
		return timer.Entry{}, false
	}
	return m.timers.Get(m.task.ID)
}

// TaskID returns the displayed task's ID, empty when none is loaded.
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 0)
}
