package app

import (
	"context"
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/client"
	"github.com/nhle/timetrack/internal/credential"
	"github.com/nhle/timetrack/internal/model"
	appsync "github.com/nhle/timetrack/internal/sync"
	"github.com/nhle/timetrack/internal/ui/detail"
	"github.com/nhle/timetrack/internal/ui/login"
	summaryview "github.com/nhle/timetrack/internal/ui/summary"
	"github.com/nhle/timetrack/internal/ui/tasklist"
	"github.com/nhle/timetrack/internal/ui/timelogs"
)

const sessionExpired = "Your session has expired. Please log in again."

// sessionRestoredMsg reports whether a stored token was found.
type sessionRestoredMsg struct {
	ok bool
}

// authResultMsg is sent when a login or registration completes.
type authResultMsg struct {
	user *model.User
	err  error
}

// loggedOutMsg is sent once the session is torn down.
type loggedOutMsg struct {
	reason string
}

// restoreSession loads the stored token for the server, if any. A
// rejected token surfaces on the first poll.
func (m *Model) restoreSession() tea.Cmd {
	api, creds, url := m.api, m.creds, m.serverURL
	return func() tea.Msg {
		if api.Token() != "" {
			return sessionRestoredMsg{ok: true}
		}
		token, err := creds.Token(url)
		if err != nil {
			if !errors.Is(err, credential.ErrNoSession) {
				log.Printf("warning: reading stored session: %v", err)
			}
			return sessionRestoredMsg{ok: false}
		}
		api.SetToken(token)
		return sessionRestoredMsg{ok: true}
	}
}

// authenticate logs in or registers and stores the new session token.
func (m *Model) authenticate(req login.SubmitMsg) tea.Cmd {
	api, creds, url := m.api, m.creds, m.serverURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			user *model.User
			err  error
		)
		if req.Register {
			user, err = api.Register(ctx, req.Email, req.Password, req.Name)
		} else {
			user, err = api.Login(ctx, req.Email, req.Password)
		}
		if err != nil {
			return authResultMsg{err: err}
		}

		if err := creds.Save(url, api.Token()); err != nil {
			// The session still works for this run.
			log.Printf("warning: storing session: %v", err)
		}
		return authResultMsg{user: user}
	}
}

// authErrorMessage turns a login failure into text for the form.
func authErrorMessage(err error) string {
	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "Could not reach the server: " + err.Error()
}

// enterSession shows the task list and starts polling.
func (m *Model) enterSession() tea.Cmd {
	m.loggedIn = true
	m.session++
	m.timersSetAt = m.now()
	m.currentView = ViewList
	return m.poller.Start()
}

// endSession stops polling, drops every running timer and forgets the
// previous user's data.
func (m *Model) endSession() {
	m.poller.Stop()
	m.registry.ClearAll()
	m.loggedIn = false
	m.session++
	m.timersSetAt = m.now()
	m.user = nil
	m.today = nil

	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.taskList, _ = m.taskList.Update(tasklist.TasksLoadedMsg{})
	m.detailView = detail.New(m.registry, m.keys, w, h)
	m.summaryView = summaryview.New(m.registry, w, h)
	m.logsView = timelogs.New(m.keys, w, h)
}

// logout ends the session on the server and locally.
func (m *Model) logout() tea.Cmd {
	m.endSession()
	api, creds, url := m.api, m.creds, m.serverURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := api.Logout(ctx); err != nil {
			log.Printf("warning: logging out: %v", err)
		}
		if err := creds.Forget(url); err != nil {
			log.Printf("warning: forgetting session: %v", err)
		}
		return loggedOutMsg{}
	}
}

// logoutLocal ends a session the server no longer accepts.
func (m *Model) logoutLocal(reason string) tea.Cmd {
	m.endSession()
	m.api.SetToken("")
	creds, url := m.creds, m.serverURL
	return func() tea.Msg {
		if err := creds.Forget(url); err != nil {
			log.Printf("warning: forgetting session: %v", err)
		}
		return loggedOutMsg{reason: reason}
	}
}

// handleSync applies a poll result.
func (m *Model) handleSync(msg appsync.SyncResultMsg) tea.Cmd {
	if !m.loggedIn || msg.Run != m.poller.Run() {
		// A poll from a stopped run; its subscriber ends here.
		return nil
	}
	if msg.Unauthorized {
		return m.logoutLocal(sessionExpired)
	}
	wait := m.poller.WaitForNextResult()
	if msg.Error != nil {
		log.Printf("warning: sync failed: %v", msg.Error)
		return wait
	}

	m.applyServerTimers(msg.Started, msg.OpenTimers())
	m.today = msg.Summary

	var listCmd, summaryCmd tea.Cmd
	m.taskList, listCmd = m.taskList.Update(tasklist.TasksLoadedMsg{Tasks: msg.Tasks})
	if m.summaryView.Date() == "" {
		m.summaryView, summaryCmd = m.summaryView.Update(summaryview.LoadedMsg{Summary: msg.Summary})
	}
	return tea.Batch(listCmd, summaryCmd, wait)
}

// handleError reports a failed request, ending the session when the
// server rejected it.
func (m *Model) handleError(action string, err error) tea.Cmd {
	if errors.Is(err, model.ErrUnauthorized) {
		return m.logoutLocal(sessionExpired)
	}
	m.setFlash(action+" failed: "+errorText(err), true)
	return nil
}

// errorText prefers the server's message over the wrapped error chain.
func errorText(err error) string {
	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

// scopedMsg carries the result of a request made during session.
type scopedMsg struct {
	session uint64
	msg     tea.Msg
}

// scoped tags cmd's result with the current session so Update can drop
// it once that session has ended.
func (m *Model) scoped(cmd tea.Cmd) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return scopedMsg{session: session, msg: cmd()}
	}
}
