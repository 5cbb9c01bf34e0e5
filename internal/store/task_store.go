package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/timetrack/internal/model"
)

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

// CreateTask inserts a new task. Generates a UUID if ID is empty and
// defaults the status to PENDING.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return model.Invalid("title", "must not be empty")
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if !model.ValidTaskStatus(task.Status) {
		return model.Invalid("status", "must be PENDING, IN_PROGRESS or COMPLETED")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, task.Status,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetTask retrieves a single task owned by userID, with TotalTime
// summed over its closed time logs.
func (s *SQLiteStore) GetTask(ctx context.Context, id, userID string) (*model.Task, error) {
	var task model.Task
	err := s.db.GetContext(ctx, &task,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	err = s.db.GetContext(ctx, &task.TotalTime, `
		SELECT COALESCE(SUM(duration), 0) FROM time_logs
		WHERE task_id = ? AND end_time IS NOT NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("summing time for task %s: %w", id, err)
	}

	return &task, nil
}

// ListTasks retrieves all of the user's tasks, newest first, each with
// its total tracked time and currently open time log.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	tasks := []model.Task{}
	err := s.db.SelectContext(ctx, &tasks,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC, rowid DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	var totals []struct {
		TaskID string `db:"task_id"`
		Total  int64  `db:"total"`
	}
	err = s.db.SelectContext(ctx, &totals, `
		SELECT task_id, COALESCE(SUM(duration), 0) AS total
		FROM time_logs
		WHERE user_id = ? AND end_time IS NOT NULL
		GROUP BY task_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("summing task time: %w", err)
	}

	open, err := s.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalByTask := make(map[string]int64, len(totals))
	for _, t := range totals {
		totalByTask[t.TaskID] = t.Total
	}
	openByTask := make(map[string]model.TimeLog, len(open))
	for _, l := range open {
		openByTask[l.TaskID] = l
	}

	for i := range tasks {
		tasks[i].TotalTime = totalByTask[tasks[i].ID]
		if l, ok := openByTask[tasks[i].ID]; ok {
			tasks[i].ActiveTimeLog = &model.ActiveTimeLog{ID: l.ID, StartTime: l.StartTime}
		}
	}

	return tasks, nil
}

// UpdateTask applies a partial edit to a task owned by userID.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	id, userID string,
	upd model.TaskUpdate,
) (*model.Task, error) {
	task, err := s.GetTask(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, model.Invalid("title", "must not be empty")
		}
		task.Title = title
	}
	if upd.Description != nil {
		task.Description = upd.Description
	}
	if upd.Status != nil {
		if !model.ValidTaskStatus(*upd.Status) {
			return nil, model.Invalid("status", "must be PENDING, IN_PROGRESS or COMPLETED")
		}
		task.Status = *upd.Status
	}
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Status, task.UpdatedAt,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return task, nil
}

// DeleteTask removes a task owned by userID together with all of its
// time logs.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id, userID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	// Also covered by the foreign-key cascade.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM time_logs WHERE task_id = ?", id); err != nil {
		return fmt.Errorf("deleting time logs for task %s: %w", id, err)
	}

	return tx.Commit()
}

// CountTasksByStatus returns the number of the user's tasks per status.
// Statuses with no tasks are absent from the map.
func (s *SQLiteStore) CountTasksByStatus(ctx context.Context, userID string) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS n FROM tasks
		WHERE user_id = ?
		GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
