// Package tracker implements the time log lifecycle: starting, stopping
// and deleting the intervals tracked against a task.
package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nhle/timetrack/internal/model"
)

// Store is the subset of the persistence layer the tracker needs.
type Store interface {
	GetTask(ctx context.Context, id, userID string) (*model.Task, error)
	CreateTimeLog(ctx context.Context, taskID, userID string, startTime time.Time) (*model.TimeLog, error)
	GetTimeLog(ctx context.Context, id, userID string) (*model.TimeLog, error)
	FindOpenByTask(ctx context.Context, taskID string) (*model.TimeLog, error)
	ListTimeLogs(ctx context.Context, userID string) ([]model.TimeLog, error)
	CloseTimeLog(ctx context.Context, id, userID string, endTime time.Time, duration int64) (*model.TimeLog, error)
	DeleteTimeLog(ctx context.Context, id, userID string) error
}

// Service starts and stops timers against tasks.
type Service struct {
	store Store
	now   func() time.Time
}

// New creates a Service backed by s using the wall clock.
func New(s Store) *Service {
	return &Service{store: s, now: time.Now}
}

// WithClock returns a copy of the service that reads the current time
// from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Start opens a time log for a task owned by userID.
//
// It fails with model.ErrNotFound when the task is missing or owned by
// someone else, and with model.ErrConflict when the task already has a
// running log.
func (s *Service) Start(
	ctx context.Context,
	taskID, userID string,
	startTime time.Time,
) (*model.TimeLog, error) {
	if taskID == "" {
		return nil, model.Invalid("taskId", "is required")
	}
	if startTime.IsZero() {
		return nil, model.Invalid("startTime", "is required")
	}

	task, err := s.store.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	open, err := s.store.FindOpenByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, fmt.Errorf("task %s is already being tracked by time log %s: %w",
			task.ID, open.ID, model.ErrConflict)
	}

	// A start racing this one past the check above is rejected by the
	// store's unique index with the same ErrConflict.
	timeLog, err := s.store.CreateTimeLog(ctx, task.ID, userID, startTime)
	if err != nil {
		return nil, err
	}
	timeLog.TaskTitle = task.Title
	return timeLog, nil
}

// Stop closes a running time log owned by userID, setting its end time
// to now and its duration to the whole seconds elapsed since start.
//
// A stop that would produce a negative duration (the start time lies in
// the future, i.e. client clock skew) is recorded with duration 0 and
// logged. A failed stop leaves the log unchanged.
func (s *Service) Stop(ctx context.Context, timeLogID, userID string) (*model.TimeLog, error) {
	existing, err := s.store.GetTimeLog(ctx, timeLogID, userID)
	if err != nil {
		return nil, err
	}
	if !existing.IsRunning() {
		return nil, fmt.Errorf("time log %s already stopped: %w", timeLogID, model.ErrInvalidState)
	}

	endTime := s.now()
	duration := Duration(existing.StartTime, endTime)
	if endTime.Before(existing.StartTime) {
		log.Printf("warning: time log %s stopped %s before its start time, recording duration 0",
			timeLogID, existing.StartTime.Sub(endTime).Round(time.Second))
	}

	return s.store.CloseTimeLog(ctx, timeLogID, userID, endTime, duration)
}

// Delete permanently removes a time log owned by userID, running or not.
func (s *Service) Delete(ctx context.Context, timeLogID, userID string) error {
	return s.store.DeleteTimeLog(ctx, timeLogID, userID)
}

// List returns all of the user's time logs, newest start first.
func (s *Service) List(ctx context.Context, userID string) ([]model.TimeLog, error) {
	return s.store.ListTimeLogs(ctx, userID)
}

// Duration returns floor(end - start) in whole seconds, clamped to zero.
func Duration(start, end time.Time) int64 {
	return model.ElapsedSeconds(start, end)
}
