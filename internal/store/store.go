package store

import (
	"context"
	"time"

	"github.com/nhle/timetrack/internal/model"
)

// Store defines the persistence interface for users, tasks and time logs.
//
// Lookups that take a userID only match rows owned by that user; a row
// owned by someone else is reported as model.ErrNotFound.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id, userID string) (*model.Task, error)
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	UpdateTask(ctx context.Context, id, userID string, upd model.TaskUpdate) (*model.Task, error)
	DeleteTask(ctx context.Context, id, userID string) error
	CountTasksByStatus(ctx context.Context, userID string) (map[string]int, error)

	// === Time logs ===

	CreateTimeLog(ctx context.Context, taskID, userID string, startTime time.Time) (*model.TimeLog, error)
	GetTimeLog(ctx context.Context, id, userID string) (*model.TimeLog, error)
	FindOpenByTask(ctx context.Context, taskID string) (*model.TimeLog, error)
	FindOpenByUser(ctx context.Context, userID string) ([]model.TimeLog, error)
	FindAllByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]model.TimeLog, error)
	ListTimeLogs(ctx context.Context, userID string) ([]model.TimeLog, error)
	CloseTimeLog(ctx context.Context, id, userID string, endTime time.Time, duration int64) (*model.TimeLog, error)
	DeleteTimeLog(ctx context.Context, id, userID string) error
}
