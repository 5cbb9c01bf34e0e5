package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/timetrack/internal/model"
)

// timeLogSelect selects time log columns joined with the owning task's title.
const timeLogSelect = `
	SELECT tl.id, tl.user_id, tl.task_id, tl.start_time, tl.end_time, tl.duration,
		t.title AS task_title
	FROM time_logs tl
	JOIN tasks t ON t.id = tl.task_id`

// CreateTimeLog inserts a running time log for a task. If the task
// already has a running log the partial unique index rejects the insert
// and model.ErrConflict is returned.
func (s *SQLiteStore) CreateTimeLog(
	ctx context.Context,
	taskID, userID string,
	startTime time.Time,
) (*model.TimeLog, error) {
	log := &model.TimeLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		TaskID:    taskID,
		StartTime: startTime.UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_logs (id, user_id, task_id, start_time, end_time, duration)
		VALUES (?, ?, ?, ?, NULL, NULL)`,
		log.ID, log.UserID, log.TaskID, log.StartTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %s already has a running time log: %w",
				taskID, model.ErrConflict)
		}
		return nil, fmt.Errorf("creating time log: %w", err)
	}

	return log, nil
}

// GetTimeLog retrieves a single time log owned by userID.
func (s *SQLiteStore) GetTimeLog(ctx context.Context, id, userID string) (*model.TimeLog, error) {
	var log model.TimeLog
	err := s.db.GetContext(ctx, &log,
		timeLogSelect+" WHERE tl.id = ? AND tl.user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time log %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting time log %s: %w", id, err)
	}
	return &log, nil
}

// FindOpenByTask returns the task's running time log, or nil if none.
func (s *SQLiteStore) FindOpenByTask(ctx context.Context, taskID string) (*model.TimeLog, error) {
	var log model.TimeLog
	err := s.db.GetContext(ctx, &log,
		timeLogSelect+" WHERE tl.task_id = ? AND tl.end_time IS NULL", taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding open time log for task %s: %w", taskID, err)
	}
	return &log, nil
}

// FindOpenByUser returns all of the user's running time logs.
func (s *SQLiteStore) FindOpenByUser(ctx context.Context, userID string) ([]model.TimeLog, error) {
	logs := []model.TimeLog{}
	err := s.db.SelectContext(ctx, &logs,
		timeLogSelect+" WHERE tl.user_id = ? AND tl.end_time IS NULL ORDER BY tl.rowid",
		userID)
	if err != nil {
		return nil, fmt.Errorf("finding open time logs: %w", err)
	}
	return logs, nil
}

// FindAllByUserInRange returns the user's closed time logs whose start
// time lies within [start, end], in insertion order.
func (s *SQLiteStore) FindAllByUserInRange(
	ctx context.Context,
	userID string,
	start, end time.Time,
) ([]model.TimeLog, error) {
	logs := []model.TimeLog{}
	err := s.db.SelectContext(ctx, &logs, timeLogSelect+`
		WHERE tl.user_id = ?
			AND tl.start_time >= ? AND tl.start_time <= ?
			AND tl.end_time IS NOT NULL
		ORDER BY tl.rowid`,
		userID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying time logs in range: %w", err)
	}
	return logs, nil
}

// ListTimeLogs returns all of the user's time logs, newest start first.
func (s *SQLiteStore) ListTimeLogs(ctx context.Context, userID string) ([]model.TimeLog, error) {
	logs := []model.TimeLog{}
	err := s.db.SelectContext(ctx, &logs,
		timeLogSelect+" WHERE tl.user_id = ? ORDER BY tl.start_time DESC, tl.rowid DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying time logs: %w", err)
	}
	return logs, nil
}

// CloseTimeLog stops a running time log owned by userID. The update is
// conditional on the log still running, so a concurrent or repeated stop
// changes nothing and reports model.ErrInvalidState.
func (s *SQLiteStore) CloseTimeLog(
	ctx context.Context,
	id, userID string,
	endTime time.Time,
	duration int64,
) (*model.TimeLog, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE time_logs SET end_time = ?, duration = ?
		WHERE id = ? AND user_id = ? AND end_time IS NULL`,
		endTime.UTC(), duration, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("closing time log %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := s.GetTimeLog(ctx, id, userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("time log %s already stopped: %w", id, model.ErrInvalidState)
	}

	return s.GetTimeLog(ctx, id, userID)
}

// DeleteTimeLog permanently removes a time log owned by userID.
func (s *SQLiteStore) DeleteTimeLog(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM time_logs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting time log %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("time log %s: %w", id, model.ErrNotFound)
	}
	return nil
}
