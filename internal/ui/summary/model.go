// Package summary renders the daily summary: totals, task counts, the
// timers running right now and the time logged that day.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
)

// LoadedMsg carries a fetched summary.
type LoadedMsg struct {
	Summary *model.Summary
	Err     error
}

// DateChangedMsg asks the parent to fetch the summary for Date
// (YYYY-MM-DD).
type DateChangedMsg struct {
	Date string
}

// TimerSource looks up the running timer for a task.
type TimerSource interface {
	Get(taskID string) (timer.Entry, bool)
}

var (
	prevDay = key.NewBinding(key.WithKeys("[", "left", "h"), key.WithHelp("[", "previous day"))
	nextDay = key.NewBinding(key.WithKeys("]", "right"), key.WithHelp("]", "next day"))
	today   = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today"))
)

// Model is the summary view.
type Model struct {
	summary  *model.Summary
	err      error
	date     time.Time
	timers   TimerSource
	viewport viewport.Model
	now      func() time.Time
	width    int
	height   int
}

// New creates a summary view showing today.
func New(timers TimerSource, width, height int) Model {
	return Model{
		timers:   timers,
		viewport: viewport.New(width, height),
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Date returns the displayed day as YYYY-MM-DD, empty for today.
func (m Model) Date() string {
	if m.date.IsZero() {
		return ""
	}
	return m.date.Format(model.DateLayout)
}

// SetDate shows the given day. Pass "" for today.
func (m *Model) SetDate(date string) {
	if date == "" {
		m.date = time.Time{}
		return
	}
	if d, err := time.ParseInLocation(model.DateLayout, date, time.Local); err == nil {
		m.date = d
	}
}

// Update handles messages for the summary view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.err = nil
			m.summary = msg.Summary
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, prevDay):
			return m.shift(-1)
		case key.Matches(msg, nextDay):
			if m.date.IsZero() {
				return m, nil
			}
			return m.shift(1)
		case key.Matches(msg, today):
			m.date = time.Time{}
			return m, changed("")
		}
	}

	// Re-render on every other message so live timers advance.
	m.viewport.SetContent(m.renderContent())
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// shift moves the displayed day by days, snapping to "today" when the
// result is today or later.
func (m Model) shift(days int) (Model, tea.Cmd) {
	base := m.date
	if base.IsZero() {
		base = m.now()
	}
	next := base.AddDate(0, 0, days)
	if !next.Before(startOfDay(m.now())) {
		m.date = time.Time{}
		return m, changed("")
	}
	m.date = next
	return m, changed(next.Format(model.DateLayout))
}

func changed(date string) tea.Cmd {
	return func() tea.Msg { return DateChangedMsg{Date: date} }
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// View renders the summary.
func (m Model) View() string {
	return m.viewport.View()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.renderContent())
}

func (m Model) renderContent() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(theme.ErrorStyle.Render("Could not load summary: "+m.err.Error()) + "\n\n")
	}
	if m.summary == nil {
		b.WriteString(theme.DimmedStyle.Render("Loading summary..."))
		return theme.PanelStyle.Width(max(m.width-4, 0)).Render(b.String())
	}
	s := m.summary

	title := "Today"
	if !m.date.IsZero() {
		title = m.date.Format("Monday, Jan 2 2006")
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title+"  ("+s.Date+")") + "\n\n")

	stat := func(label, value string) {
		b.WriteString(theme.StatLabelStyle.Render(label) + theme.StatValueStyle.Render(value) + "\n")
	}
	stat("Time tracked", timer.FormatTotal(s.TotalTime))
	stat("Tasks worked on", fmt.Sprint(s.TasksWorkedOn))
	stat("In progress", fmt.Sprint(s.InProgressTasks))
	stat("Pending", fmt.Sprint(s.PendingTasks))
	stat("Completed", fmt.Sprint(s.CompletedTasks))

	b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Running now") + "\n")
	if len(s.ActiveTimers) == 0 {
		b.WriteString(theme.DimmedStyle.Render("  no timers running") + "\n")
	}
	for _, a := range s.ActiveTimers {
		elapsed := a.ElapsedTime
		if m.timers != nil {
			if e, ok := m.timers.Get(a.TaskID); ok && e.TimeLogID == a.ID {
				elapsed = e.ElapsedTime
			}
		}
		fmt.Fprintf(&b, "  %s %s  %s\n",
			theme.TimerStyle.Render("●"),
			theme.TimerStyle.Render(timer.FormatClock(elapsed)),
			a.TaskTitle)
	}

	b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Logged") + "\n")
	if len(s.TimeLogs) == 0 {
		b.WriteString(theme.DimmedStyle.Render("  nothing logged") + "\n")
	}
	for _, l := range s.TimeLogs {
		fmt.Fprintf(&b, "  %s–%s  %8s  %s\n",
			l.StartTime.Local().Format("15:04"),
			l.EndTime.Local().Format("15:04"),
			timer.FormatTotal(l.Duration),
			l.TaskTitle)
	}

	b.WriteString("\n" + theme.HelpStyle.Render("[ previous day · ] next day · t today · esc back"))

	return theme.PanelStyle.Width(max(m.width-4, 0)).Render(b.String())
}
