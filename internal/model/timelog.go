package model

import "time"

// TimeLog is one tracked interval of work on a task.
//
// A nil EndTime means the interval is still running. Duration is set
// exactly once, when the log is stopped, and the row is immutable from
// then on except for deletion.
type TimeLog struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"userId" db:"user_id"`
	TaskID    string     `json:"taskId" db:"task_id"`
	StartTime time.Time  `json:"startTime" db:"start_time"`
	EndTime   *time.Time `json:"endTime" db:"end_time"`
	Duration  *int64     `json:"duration" db:"duration"`

	// TaskTitle is optionally populated by join queries.
	TaskTitle string `json:"taskTitle,omitempty" db:"task_title"`
}

// IsRunning reports whether the log has not been stopped yet.
func (l TimeLog) IsRunning() bool {
	return l.EndTime == nil
}

// Elapsed returns the whole seconds between the log's start and now,
// never negative.
func (l TimeLog) Elapsed(now time.Time) int64 {
	return ElapsedSeconds(l.StartTime, now)
}

// ElapsedSeconds returns floor(end - start) in seconds, clamped to zero.
func ElapsedSeconds(start, end time.Time) int64 {
	secs := int64(end.Sub(start) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
