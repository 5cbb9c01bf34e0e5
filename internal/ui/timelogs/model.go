// Package timelogs lists every time log of the user, newest first.
package timelogs

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/keys"
	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
)

// LoadedMsg carries the fetched time logs.
type LoadedMsg struct {
	TimeLogs []model.TimeLog
	Err      error
}

// DeleteMsg asks the parent to delete a time log.
type DeleteMsg struct {
	TimeLog model.TimeLog
}

// BackMsg asks the parent to return to the task list.
type BackMsg struct{}

// Model is the time log table view.
type Model struct {
	table  table.Model
	logs   []model.TimeLog
	err    error
	keys   *keys.KeyMap
	now    func() time.Time
	width  int
	height int
}

// New creates the time log view.
func New(k *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height-2, 1)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorBlue).
		Bold(true)
	t.SetStyles(styles)

	return Model{
		table:  t,
		keys:   k,
		now:    time.Now,
		width:  width,
		height: height,
	}
}

func columns(width int) []table.Column {
	taskWidth := width - 16 - 16 - 12 - 8
	if taskWidth < 12 {
		taskWidth = 12
	}
	return []table.Column{
		{Title: "Task", Width: taskWidth},
		{Title: "Started", Width: 16},
		{Title: "Stopped", Width: 16},
		{Title: "Duration", Width: 12},
	}
}

// Update handles messages for the time log view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.logs = msg.TimeLogs
		}
		m.table.SetRows(m.rows())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Delete):
			i := m.table.Cursor()
			if i < 0 || i >= len(m.logs) {
				return m, nil
			}
			tl := m.logs[i]
			return m, func() tea.Msg { return DeleteMsg{TimeLog: tl} }
		}
	}

	// Keep running rows current.
	m.table.SetRows(m.rows())
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.logs))
	now := m.now()
	for _, l := range m.logs {
		stopped := "running"
		var duration string
		if l.EndTime != nil {
			stopped = l.EndTime.Local().Format("2006-01-02 15:04")
			var secs int64
			if l.Duration != nil {
				secs = *l.Duration
			}
			duration = timer.FormatClock(secs)
		} else {
			duration = timer.FormatClock(l.Elapsed(now))
		}
		rows = append(rows, table.Row{
			l.TaskTitle,
			l.StartTime.Local().Format("2006-01-02 15:04"),
			stopped,
			duration,
		})
	}
	return rows
}

// View renders the table.
func (m Model) View() string {
	if m.err != nil {
		return theme.ErrorStyle.Render("Could not load time logs: " + m.err.Error())
	}
	if len(m.logs) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No time logged yet.")
	}
	return m.table.View()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-2, 1))
}
