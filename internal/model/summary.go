package model

import "time"

// DateLayout is the calendar-day format used by the summary endpoint.
const DateLayout = "2006-01-02"

// ActiveTimer is an open time log annotated with its live elapsed time.
type ActiveTimer struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	TaskTitle   string    `json:"taskTitle"`
	StartTime   time.Time `json:"startTime"`
	ElapsedTime int64     `json:"elapsedTime"`
}

// SummaryLog is a closed time log as listed in a daily summary.
type SummaryLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int64     `json:"duration"`
}

// Summary holds the aggregate statistics for one calendar day.
type Summary struct {
	Date            string        `json:"date"`
	TotalTime       int64         `json:"totalTime"`
	CompletedTasks  int           `json:"completedTasks"`
	InProgressTasks int           `json:"inProgressTasks"`
	PendingTasks    int           `json:"pendingTasks"`
	TasksWorkedOn   int           `json:"tasksWorkedOn"`
	ActiveTimers    []ActiveTimer `json:"activeTimers"`
	TimeLogs        []SummaryLog  `json:"timeLogs"`
}
