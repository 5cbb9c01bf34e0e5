package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/timetrack/internal/keys"
	"github.com/nhle/timetrack/internal/model"
	appsync "github.com/nhle/timetrack/internal/sync"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
	"github.com/nhle/timetrack/internal/ui"
	"github.com/nhle/timetrack/internal/ui/command"
	"github.com/nhle/timetrack/internal/ui/detail"
	helpview "github.com/nhle/timetrack/internal/ui/help"
	"github.com/nhle/timetrack/internal/ui/login"
	summaryview "github.com/nhle/timetrack/internal/ui/summary"
	"github.com/nhle/timetrack/internal/ui/taskform"
	"github.com/nhle/timetrack/internal/ui/tasklist"
	"github.com/nhle/timetrack/internal/ui/timelogs"
)

// requestTimeout bounds every API call made on behalf of a user action.
const requestTimeout = 15 * time.Second

// API is the server surface the terminal client uses.
type API interface {
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
	Token() string
	SetToken(token string)

	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, title string, description *string) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	StartTimeLog(ctx context.Context, taskID string, start time.Time) (*model.TimeLog, error)
	StopTimeLog(ctx context.Context, id string) (*model.TimeLog, error)
	DeleteTimeLog(ctx context.Context, id string) error
	ListTimeLogs(ctx context.Context) ([]model.TimeLog, error)

	Summary(ctx context.Context, date, tz string) (*model.Summary, error)
}

// Credentials persists the session token between runs.
type Credentials interface {
	Token(serverURL string) (string, error)
	Save(serverURL, token string) error
	Forget(serverURL string) error
}

// Syncer keeps the summary and task list fresh in the background.
type Syncer interface {
	Start() tea.Cmd
	Stop()
	Refresh()
	Status() appsync.SyncStatus
	WaitForNextResult() tea.Cmd
	Run() uint64
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewSummary
	ViewLogs
	ViewTaskCreate
	ViewTaskEdit
	ViewHelp
	ViewCommand
)

// Model is the root Bubble Tea model that manages view routing,
// layout, the session and the running timers.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	serverURL    string

	api      API
	creds    Credentials
	poller   Syncer
	registry *timer.Registry
	now      func() time.Time

	loginView    login.Model
	taskList     tasklist.Model
	detailView   detail.Model
	taskForm     taskform.Model
	summaryView  summaryview.Model
	logsView     timelogs.Model
	helpView     helpview.Model
	commandView  command.Model
	syncSpinner  spinner.Model
	user         *model.User
	today        *model.Summary
	loggedIn     bool
	session      uint64
	authPending  bool
	timersSetAt  time.Time
	flash        string
	flashIsError bool
	ready        bool
}

// New creates the root application model.
func New(api API, creds Credentials, poller Syncer, registry *timer.Registry, serverURL string) Model {
	k := keys.DefaultKeyMap()
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = theme.DimmedStyle

	return Model{
		currentView: ViewLogin,
		keys:        k,
		serverURL:   serverURL,
		api:         api,
		creds:       creds,
		poller:      poller,
		registry:    registry,
		now:         time.Now,
		loginView:   login.New(serverURL, 80, 24),
		taskList:    tasklist.New(registry, k, 80, 24),
		detailView:  detail.New(registry, k, 80, 24),
		taskForm:    taskform.New(80, 24),
		summaryView: summaryview.New(registry, 80, 24),
		logsView:    timelogs.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		syncSpinner: sp,
	}
}

// Init restores a stored session and starts the display ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.restoreSession(),
		tasklist.Tick(),
		m.syncSpinner.Tick,
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.summaryView.SetSize(w, h)
		m.logsView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tasklist.TickMsg:
		// The task list reads the registry on render; the summary and
		// log views rebuild their content on update.
		var cmd tea.Cmd
		switch m.currentView {
		case ViewDetail:
			m.detailView, cmd = m.detailView.Update(msg)
		case ViewSummary:
			m.summaryView, cmd = m.summaryView.Update(msg)
		case ViewLogs:
			m.logsView, cmd = m.logsView.Update(msg)
		}
		return m, tea.Batch(cmd, tasklist.Tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.syncSpinner, cmd = m.syncSpinner.Update(msg)
		return m, cmd

	// Session

	case sessionRestoredMsg:
		if !msg.ok {
			m.currentView = ViewLogin
			cmd := m.loginView.Start("")
			return m, cmd
		}
		cmd := m.enterSession()
		return m, cmd

	case login.SubmitMsg:
		m.authPending = true
		cmd := m.authenticate(msg)
		return m, cmd

	case login.CancelMsg:
		cmd := m.quit()
		return m, cmd

	case authResultMsg:
		m.authPending = false
		if msg.err != nil {
			cmd := m.loginView.Start(authErrorMessage(msg.err))
			return m, cmd
		}
		m.user = msg.user
		cmd := m.enterSession()
		return m, cmd

	case loggedOutMsg:
		m.currentView = ViewLogin
		cmd := m.loginView.Start(msg.reason)
		return m, cmd

	case appsync.SyncResultMsg:
		cmd := m.handleSync(msg)
		return m, cmd

	// Tasks

	case scopedMsg:
		if msg.session != m.session || !m.loggedIn {
			// Sent by a session that has since ended.
			return m, nil
		}
		return m.Update(msg.msg)

	case tasksLoadedMsg:
		if !m.loggedIn {
			return m, nil
		}
		if msg.err != nil {
			cmd := m.handleError("Loading tasks", msg.err)
			return m, cmd
		}
		m.applyServerTimers(msg.started, openTimersFromTasks(msg.tasks))
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(tasklist.TasksLoadedMsg{Tasks: msg.tasks})
		return m, cmd

	case tasklist.ToggleTimerMsg:
		cmd := m.toggleTimer(msg.Task)
		return m, cmd

	case tasklist.OpenTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detailView.SetLoading(true)
		cmd := m.loadTaskDetail(msg.Task.ID)
		return m, cmd

	case tasklist.EditTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewTaskEdit
		cmd := m.taskForm.StartEdit(msg.Task)
		return m, cmd

	case detail.DetailLoadedMsg:
		if errors.Is(msg.Err, model.ErrUnauthorized) {
			cmd := m.logoutLocal(sessionExpired)
			return m, cmd
		}
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd

	case detail.ActionMsg:
		switch msg.Action {
		case "timer":
			cmd := m.toggleTimer(msg.Task)
			return m, cmd
		case "edit":
			m.previousView = ViewDetail
			m.currentView = ViewTaskEdit
			cmd := m.taskForm.StartEdit(msg.Task)
			return m, cmd
		case "complete":
			cmd := m.toggleComplete(msg.Task)
			return m, cmd
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case tasklist.ToggleCompleteMsg:
		cmd := m.toggleComplete(msg.Task)
		return m, cmd

	case tasklist.DeleteTaskMsg:
		cmd := m.deleteTask(msg.Task)
		return m, cmd

	case taskform.TaskCreatedMsg:
		m.currentView = m.formReturnView()
		cmd := m.createTask(msg.Title, msg.Description)
		return m, cmd

	case taskform.TaskUpdatedMsg:
		m.currentView = m.formReturnView()
		cmd := m.updateTask(msg.ID, msg.Update)
		return m, cmd

	case taskform.CancelMsg:
		m.currentView = m.formReturnView()
		return m, nil

	case taskChangedMsg:
		if msg.err != nil {
			cmd := m.handleError(msg.action, msg.err)
			if !m.loggedIn {
				return m, cmd
			}
			return m, tea.Batch(cmd, m.loadTasks())
		}
		m.setFlash(msg.done, false)
		m.poller.Refresh()
		return m, tea.Batch(m.loadTasks(), m.reloadDetail())

	// Timers

	case timerStartedMsg:
		cmd := m.handleTimerStarted(msg)
		return m, cmd

	case timerStoppedMsg:
		cmd := m.handleTimerStopped(msg)
		return m, cmd

	// Summary and time logs

	case summaryview.DateChangedMsg:
		if msg.Date == "" {
			m.poller.Refresh()
			var cmd tea.Cmd
			if m.today != nil {
				m.summaryView, cmd = m.summaryView.Update(summaryview.LoadedMsg{Summary: m.today})
			}
			return m, cmd
		}
		cmd := m.loadSummary(msg.Date)
		return m, cmd

	case summaryview.LoadedMsg:
		if errors.Is(msg.Err, model.ErrUnauthorized) {
			cmd := m.logoutLocal(sessionExpired)
			return m, cmd
		}
		var cmd tea.Cmd
		m.summaryView, cmd = m.summaryView.Update(msg)
		return m, cmd

	case timelogs.LoadedMsg:
		if errors.Is(msg.Err, model.ErrUnauthorized) {
			cmd := m.logoutLocal(sessionExpired)
			return m, cmd
		}
		var cmd tea.Cmd
		m.logsView, cmd = m.logsView.Update(msg)
		return m, cmd

	case timelogs.DeleteMsg:
		cmd := m.deleteTimeLog(msg.TimeLog)
		return m, cmd

	case timelogs.BackMsg:
		m.currentView = ViewList
		return m, nil

	case timeLogDeletedMsg:
		if msg.err != nil {
			cmd := m.handleError("Deleting time log", msg.err)
			return m, cmd
		}
		m.setFlash("Time log deleted", false)
		m.poller.Refresh()
		return m, tea.Batch(m.loadTimeLogs(), m.loadTasks())

	case command.CommandMsg:
		m.currentView = m.previousView
		m.commandView.Blur()
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			cmd := m.quit()
			return m, cmd
		}
		if m.capturesKeys() {
			break
		}
		m.flash = ""
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesKeys reports whether the active view consumes every key,
// e.g. a form or the list filter input.
func (m Model) capturesKeys() bool {
	switch m.currentView {
	case ViewLogin, ViewTaskCreate, ViewTaskEdit:
		return true
	case ViewList:
		return m.taskList.Filtering()
	}
	return false
}

// handleGlobalKey handles keys that work across views.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Command):
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			m.commandView.Blur()
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true
	}

	// The command palette owns every other key.
	if m.currentView == ViewCommand {
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			m.commandView.Blur()
			return m, nil, true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Back):
		switch m.currentView {
		case ViewHelp:
			m.currentView = m.previousView
			return m, nil, true
		case ViewSummary:
			m.currentView = ViewList
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			cmd := m.quit()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Refresh):
		m.poller.Refresh()
		if m.currentView == ViewLogs {
			cmd := m.loadTimeLogs()
			return m, cmd, true
		}
		if m.currentView == ViewSummary && m.summaryView.Date() != "" {
			cmd := m.loadSummary(m.summaryView.Date())
			return m, cmd, true
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Summary):
		if m.currentView == ViewList || m.currentView == ViewLogs {
			cmd := m.showSummary("")
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewList {
			cmd := m.showLogs()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.New):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewTaskCreate
			cmd := m.taskForm.StartCreate()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.Logout):
		if m.currentView == ViewList {
			cmd := m.logout()
			return m, cmd, true
		}
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewSummary:
		m.summaryView, cmd = m.summaryView.Update(msg)
	case ViewLogs:
		m.logsView, cmd = m.logsView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "timetrack"
	if m.user != nil {
		title = fmt.Sprintf("timetrack · %s", m.user.Name)
	}
	header := m.layout.RenderHeader(title, m.syncStatus())
	content := m.renderContent()

	hints, isErr := m.keyHints(), false
	if m.flash != "" {
		hints, isErr = m.flash, m.flashIsError
	}
	statusBar := m.layout.RenderStatusBar(hints, isErr)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewSummary:
		return m.summaryView.View()
	case ViewLogs:
		return m.logsView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the running timers and
// the poller state.
func (m Model) syncStatus() string {
	if !m.loggedIn {
		if m.authPending {
			return m.syncSpinner.View() + " signing in"
		}
		return "signed out"
	}

	running := ""
	if n := m.registry.Len(); n > 0 {
		running = theme.TimerStyle.Render(fmt.Sprintf("● %d running", n)) + "  "
	}

	status := m.poller.Status()
	switch status.State {
	case appsync.SyncRunning:
		return running + m.syncSpinner.View() + " syncing"
	case appsync.SyncError:
		return running + "⚠ server unreachable"
	}
	if status.LastSync.IsZero() {
		return running + "not synced"
	}
	return running + "synced " + status.LastSync.Format("15:04:05")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | tab next field | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "s start/stop | e edit | x complete | j/k scroll | esc back"
	case ViewSummary:
		return "[ ] change day | t today | r refresh | esc back"
	case ViewLogs:
		return "d delete | r refresh | S summary | esc back"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	default:
		return "q quit | ? help | s start/stop | enter details | n new | S summary | l logs | / search"
	}
}

// formReturnView is where a closed task form returns to.
func (m Model) formReturnView() ViewState {
	if m.previousView == ViewDetail {
		return ViewDetail
	}
	return ViewList
}

// setFlash shows a one-off message in the status bar until the next key.
func (m *Model) setFlash(text string, isError bool) {
	m.flash = text
	m.flashIsError = isError
}

// showSummary switches to the summary view for date ("" for today).
func (m *Model) showSummary(date string) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewSummary
	m.summaryView.SetDate(date)
	if date == "" {
		m.poller.Refresh()
		if m.today == nil {
			return nil
		}
		var cmd tea.Cmd
		m.summaryView, cmd = m.summaryView.Update(summaryview.LoadedMsg{Summary: m.today})
		return cmd
	}
	return m.loadSummary(date)
}

// showLogs switches to the time log view and loads it.
func (m *Model) showLogs() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewLogs
	return m.loadTimeLogs()
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	if !m.loggedIn && cmd != "quit" && cmd != "q" {
		return nil
	}
	switch cmd {
	case "refresh", "sync":
		m.poller.Refresh()
		return m.loadTasks()
	case "summary", "today":
		return m.showSummary("")
	case "summary yesterday", "yesterday":
		return m.showSummary(m.now().AddDate(0, 0, -1).Format(model.DateLayout))
	case "logs", "time logs":
		return m.showLogs()
	case "tasks", "list":
		m.currentView = ViewList
		return nil
	case "new", "new task":
		m.previousView = ViewList
		m.currentView = ViewTaskCreate
		return m.taskForm.StartCreate()
	case "stop all":
		return m.stopAll()
	case "logout":
		return m.logout()
	case "quit", "q":
		return m.quit()
	default:
		m.setFlash(fmt.Sprintf("Unknown command %q", cmd), true)
		return nil
	}
}

// quit stops background work and exits.
func (m *Model) quit() tea.Cmd {
	m.poller.Stop()
	m.registry.ClearAll()
	return tea.Quit
}
