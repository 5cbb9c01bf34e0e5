package model

import "time"

// Task status constants. Status only changes through explicit user
// actions; timer activity never moves a task between states.
const (
	TaskStatusPending    = "PENDING"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusCompleted  = "COMPLETED"
)

// ValidTaskStatus reports whether s is one of the Task status constants.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work owned by a single user.
type Task struct {
	// ID is the server-assigned unique identifier.
	ID string `json:"id" db:"id"`

	// UserID is the owning user.
	UserID string `json:"userId" db:"user_id"`

	// Title is the short, non-empty summary of the task.
	Title string `json:"title" db:"title"`

	// Description is optional free text.
	Description *string `json:"description" db:"description"`

	// Status is one of the TaskStatus* constants.
	Status string `json:"status" db:"status"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// TotalTime is the sum of closed time log durations in seconds.
	// Populated by list and detail queries only.
	TotalTime int64 `json:"totalTime" db:"-"`

	// ActiveTimeLog is the task's currently open time log, if any.
	// Populated by list queries only.
	ActiveTimeLog *ActiveTimeLog `json:"activeTimeLog" db:"-"`
}

// ActiveTimeLog is the minimal view of an open time log a client needs
// to resume a running timer after a reload.
type ActiveTimeLog struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
}

// TaskUpdate carries a partial task edit. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}
