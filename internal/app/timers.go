package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/timer"
)

// timerStartedMsg is sent when a start request completes.
type timerStartedMsg struct {
	taskID  string
	title   string
	timeLog *model.TimeLog
	err     error
}

// timerStoppedMsg is sent when a stop request completes.
type timerStoppedMsg struct {
	taskID  string
	title   string
	timeLog *model.TimeLog
	err     error
}

// toggleTimer starts the task's timer, or stops it when one is running.
// The registry changes before the request is sent; the response then
// confirms or undoes the change.
func (m *Model) toggleTimer(task model.Task) tea.Cmd {
	if e, ok := m.registry.Get(task.ID); ok {
		if e.Pending {
			m.setFlash("Timer is still starting", false)
			return nil
		}
		m.registry.StopTimer(task.ID)
		m.timersSetAt = m.now()
		return m.stopTimeLog(task, e.TimeLogID)
	}

	start := m.now()
	m.registry.StartTimer(task.ID, "", start)
	m.timersSetAt = start
	return m.startTimeLog(task, start)
}

func (m *Model) startTimeLog(task model.Task, start time.Time) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		tl, err := api.StartTimeLog(ctx, task.ID, start)
		return timerStartedMsg{taskID: task.ID, title: task.Title, timeLog: tl, err: err}
	})
}

func (m *Model) stopTimeLog(task model.Task, timeLogID string) tea.Cmd {
	api := m.api
	return m.scoped(func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		tl, err := api.StopTimeLog(ctx, timeLogID)
		return timerStoppedMsg{taskID: task.ID, title: task.Title, timeLog: tl, err: err}
	})
}

// handleTimerStarted confirms the pending entry with the server's id and
// start time, or rolls it back.
func (m *Model) handleTimerStarted(msg timerStartedMsg) tea.Cmd {
	m.timersSetAt = m.now()
	if !m.loggedIn {
		return nil
	}

	if msg.err != nil {
		m.registry.StopTimer(msg.taskID)
		cmd := m.handleError("Starting timer", msg.err)
		if errors.Is(msg.err, model.ErrConflict) {
			// Already running elsewhere; show the server's timer.
			return tea.Batch(cmd, m.loadTasks())
		}
		return cmd
	}

	if !m.registry.Confirm(msg.taskID, msg.timeLog.ID, msg.timeLog.StartTime) {
		// Cleared meanwhile; the next poll shows the server state.
		return nil
	}
	m.setFlash("Started "+msg.title, false)
	m.poller.Refresh()
	return nil
}

// handleTimerStopped reports a stop. A failed stop re-reads the server
// so a timer that is still open reappears.
func (m *Model) handleTimerStopped(msg timerStoppedMsg) tea.Cmd {
	m.timersSetAt = m.now()
	if !m.loggedIn {
		return nil
	}

	if msg.err != nil {
		cmd := m.handleError("Stopping timer", msg.err)
		if !m.loggedIn {
			return cmd
		}
		return tea.Batch(cmd, m.loadTasks())
	}

	var logged int64
	if msg.timeLog != nil && msg.timeLog.Duration != nil {
		logged = *msg.timeLog.Duration
	}
	m.setFlash("Logged "+timer.FormatTotal(logged)+" on "+msg.title, false)
	m.poller.Refresh()
	return tea.Batch(m.loadTasks(), m.reloadDetail())
}

// stopAll stops every confirmed running timer.
func (m *Model) stopAll() tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range m.registry.Snapshot() {
		if e.Pending {
			continue
		}
		m.registry.StopTimer(e.TaskID)
		task := model.Task{ID: e.TaskID, Title: m.taskTitle(e.TaskID)}
		cmds = append(cmds, m.stopTimeLog(task, e.TimeLogID))
	}
	if len(cmds) == 0 {
		m.setFlash("No timers running", false)
		return nil
	}
	m.timersSetAt = m.now()
	return tea.Batch(cmds...)
}

// applyServerTimers reconciles the registry with open time logs read
// by a fetch that began at started. Fetches that began before the last
// local timer change are ignored; the next one will include it.
func (m *Model) applyServerTimers(started time.Time, open []timer.OpenTimer) {
	if started.Before(m.timersSetAt) {
		return
	}
	m.registry.Reconcile(open)
}

// openTimersFromTasks lists the tasks' running time logs.
func openTimersFromTasks(tasks []model.Task) []timer.OpenTimer {
	var open []timer.OpenTimer
	for _, t := range tasks {
		if t.ActiveTimeLog == nil {
			continue
		}
		open = append(open, timer.OpenTimer{
			TaskID:    t.ID,
			TimeLogID: t.ActiveTimeLog.ID,
			StartTime: t.ActiveTimeLog.StartTime,
		})
	}
	return open
}

// taskTitle looks up a loaded task's title.
func (m *Model) taskTitle(taskID string) string {
	for _, t := range m.taskList.Tasks() {
		if t.ID == taskID {
			return t.Title
		}
	}
	return "task"
}
