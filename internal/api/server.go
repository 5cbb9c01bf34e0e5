// Package api exposes the tracker over HTTP: JSON handlers for
// accounts, tasks, time logs and daily summaries, routed with
// gorilla/mux.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/timetrack/internal/auth"
	"github.com/nhle/timetrack/internal/model"
)

// Store is the persistence the handlers use directly. Time log
// mutations go through the Tracker instead.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id, userID string) (*model.Task, error)
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	UpdateTask(ctx context.Context, id, userID string, upd model.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, id, userID string) error
}

// Tracker is the time log lifecycle.
type Tracker interface {
	Start(ctx context.Context, taskID, userID string, startTime time.Time) (*model.TimeLog, error)
	Stop(ctx context.Context, timeLogID, userID string) (*model.TimeLog, error)
	Delete(ctx context.Context, timeLogID, userID string) error
	List(ctx context.Context, userID string) ([]model.TimeLog, error)
}

// Summarizer computes daily summaries.
type Summarizer interface {
	Summarize(ctx context.Context, userID string, date time.Time, loc *time.Location) (*model.Summary, error)
	Location() *time.Location
}

// Server holds the handler dependencies.
type Server struct {
	store   Store
	tracker Tracker
	summary Summarizer
	issuer  *auth.Issuer

	// allowClientTZ honours the summary endpoint's tz parameter.
	allowClientTZ bool
}

// Options configures optional Server behaviour.
type Options struct {
	AllowClientTimezone bool
}

// NewServer creates a Server.
func NewServer(s Store, t Tracker, sum Summarizer, issuer *auth.Issuer, opts Options) *Server {
	return &Server{
		store:         s,
		tracker:       t,
		summary:       sum,
		issuer:        issuer,
		allowClientTZ: opts.AllowClientTimezone,
	}
}

// Handler returns the routed HTTP handler. Everything except /health
// and /auth requires a session token.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(s.issuer.Middleware)

	protected.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)

	protected.HandleFunc("/time-logs", s.handleListTimeLogs).Methods(http.MethodGet)
	protected.HandleFunc("/time-logs", s.handleStartTimeLog).Methods(http.MethodPost)
	protected.HandleFunc("/time-logs/{id}/stop", s.handleStopTimeLog).Methods(http.MethodPost)
	protected.HandleFunc("/time-logs/{id}", s.handleDeleteTimeLog).Methods(http.MethodDelete)

	protected.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)

	return r
}

// currentUser returns the authenticated user ID. Routes behind the
// auth middleware always have one.
func currentUser(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}
