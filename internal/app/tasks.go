package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/ui/detail"
	summaryview "github.com/nhle/timetrack/internal/ui/summary"
	"github.com/nhle/timetrack/internal/ui/timelogs"
)

// tasksLoadedMsg carries the task list fetched by a fetch that began at
// started.
type tasksLoadedMsg struct {
	tasks   []model.Task
	started time.Time
	err     error
}

// taskChangedMsg is sent after a task is created, updated or deleted.
type taskChangedMsg struct {
	action string
	done   string
	err    error
}

// timeLogDeletedMsg is sent after a time log is deleted.
type timeLogDeletedMsg struct {
	err error
}

// loadTasks fetches the task list.
func (m *Model) loadTasks() tea.Cmd {
	api, now := m.api, m.now
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		started := now()
		tasks, err := api.ListTasks(ctx)
		return tasksLoadedMsg{tasks: tasks, started: started, err: err}
	})
}

// createTask persists a new task.
func (m *Model) createTask(title string, description *string) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := api.CreateTask(ctx, title, description)
		return taskChangedMsg{action: "Creating task", done: "Task created", err: err}
	})
}

// updateTask applies an edit to a task.
func (m *Model) updateTask(id string, upd model.TaskUpdate) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := api.UpdateTask(ctx, id, upd)
		return taskChangedMsg{action: "Updating task", done: "Task updated", err: err}
	})
}

// toggleComplete completes an open task or reopens a completed one.
func (m *Model) toggleComplete(task model.Task) tea.Cmd {
	status := model.TaskStatusCompleted
	if task.Status == model.TaskStatusCompleted {
		status = model.TaskStatusPending
	}
	return m.updateTask(task.ID, model.TaskUpdate{Status: &status})
}

// deleteTask removes a task. The server deletes its time logs, so a
// running timer for it goes away too.
func (m *Model) deleteTask(task model.Task) tea.Cmd {
	m.registry.StopTimer(task.ID)
	m.timersSetAt = m.now()

	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := api.DeleteTask(ctx, task.ID)
		return taskChangedMsg{action: "Deleting task", done: "Task deleted", err: err}
	})
}

// loadSummary fetches the summary of a past day.
func (m *Model) loadSummary(date string) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		sum, err := api.Summary(ctx, date, "")
		return summaryview.LoadedMsg{Summary: sum, Err: err}
	})
}

// loadTimeLogs fetches every time log of the user.
func (m *Model) loadTimeLogs() tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		logs, err := api.ListTimeLogs(ctx)
		return timelogs.LoadedMsg{TimeLogs: logs, Err: err}
	})
}

// deleteTimeLog removes a time log, stopping its timer when it is the
// one running.
func (m *Model) deleteTimeLog(tl model.TimeLog) tea.Cmd {
	if e, ok := m.registry.Get(tl.TaskID); ok && e.TimeLogID == tl.ID {
		m.registry.StopTimer(tl.TaskID)
		m.timersSetAt = m.now()
	}

	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return timeLogDeletedMsg{err: api.DeleteTimeLog(ctx, tl.ID)}
	})
}

// loadTaskDetail fetches a task and its time logs.
func (m *Model) loadTaskDetail(taskID string) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		task, err := api.GetTask(ctx, taskID)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		all, err := api.ListTimeLogs(ctx)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		var logs []model.TimeLog
		for _, l := range all {
			if l.TaskID == taskID {
				logs = append(logs, l)
			}
		}
		return detail.DetailLoadedMsg{Task: task, TimeLogs: logs}
	})
}

// reloadDetail refreshes the detail view when it is showing.
func (m *Model) reloadDetail() tea.Cmd {
	if m.currentView != ViewDetail || m.detailView.TaskID() == "" {
		return nil
	}
	return m.loadTaskDetail(m.detailView.TaskID())
}
