package tasklist

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/keys"
	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
)

// TasksLoadedMsg replaces the list contents.
type TasksLoadedMsg struct {
	Tasks []model.Task
}

// ToggleTimerMsg asks the parent to start or stop the task's timer.
type ToggleTimerMsg struct {
	Task model.Task
}

// OpenTaskMsg asks the parent to show a task's details.
type OpenTaskMsg struct {
	Task model.Task
}

// EditTaskMsg asks the parent to open the edit form for a task.
type EditTaskMsg struct {
	Task model.Task
}

// ToggleCompleteMsg asks the parent to complete or reopen a task.
type ToggleCompleteMsg struct {
	Task model.Task
}

// DeleteTaskMsg asks the parent to delete a task.
type DeleteTaskMsg struct {
	Task model.Task
}

// TickMsg triggers a re-render so running timers advance on screen.
type TickMsg time.Time

// Tick returns a command that delivers a TickMsg after one timer tick.
func Tick() tea.Cmd {
	return tea.Tick(timer.TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Model is the main task list view component.
type Model struct {
	list     list.Model
	keys     *keys.KeyMap
	loadedAt time.Time
	width    int
	height   int
}

// New creates a new task list model. Running timers are read from
// timers on every render.
func New(timers TimerSource, k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{timers: timers}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		items := make([]list.Item, len(msg.Tasks))
		for i, task := range msg.Tasks {
			items[i] = TaskItem{Task: task}
		}
		m.loadedAt = time.Now()
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		// While the user types a filter, every key belongs to the list.
		if m.list.FilterState() == list.Filtering {
			break
		}
		if cmd, handled := m.handleKeys(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys maps task actions to parent messages.
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	task, ok := m.SelectedTask()
	if !ok {
		return nil, false
	}

	var out tea.Msg
	switch {
	case key.Matches(msg, m.keys.ToggleTimer):
		out = ToggleTimerMsg{Task: task}
	case key.Matches(msg, m.keys.Open):
		out = OpenTaskMsg{Task: task}
	case key.Matches(msg, m.keys.Edit):
		out = EditTaskMsg{Task: task}
	case key.Matches(msg, m.keys.Complete):
		out = ToggleCompleteMsg{Task: task}
	case key.Matches(msg, m.keys.Delete):
		out = DeleteTaskMsg{Task: task}
	default:
		return nil, false
	}
	return func() tea.Msg { return out }, true
}

// SelectedTask returns the focused task.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Tasks returns the tasks currently listed.
func (m Model) Tasks() []model.Task {
	items := m.list.Items()
	tasks := make([]model.Task, 0, len(items))
	for _, it := range items {
		if ti, ok := it.(TaskItem); ok {
			tasks = append(tasks, ti.Task)
		}
	}
	return tasks
}

// Filtering reports whether the user is typing a filter, in which case
// the parent must not intercept keys.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	updated := theme.DimmedStyle.Render("  updated " + relativeTime(m.loadedAt, time.Now()))
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), updated)
}

// renderEmptyState shows guidance text when there are no tasks.
func (m Model) renderEmptyState() string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render("No tasks yet.\n\nPress n to create one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
