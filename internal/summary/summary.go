// Package summary derives daily statistics from a user's tasks and
// time logs. Every operation here is a pure read.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/timetrack/internal/model"
)

// Store is the subset of the persistence layer the aggregator needs.
type Store interface {
	FindAllByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]model.TimeLog, error)
	FindOpenByUser(ctx context.Context, userID string) ([]model.TimeLog, error)
	CountTasksByStatus(ctx context.Context, userID string) (map[string]int, error)
}

// Aggregator computes daily summaries.
type Aggregator struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// New creates an Aggregator whose calendar days are those of loc.
// A nil loc means the server's local zone.
func New(s Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{store: s, loc: loc, now: time.Now}
}

// WithClock returns a copy of the aggregator that reads the current
// time from now.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	c := *a
	c.now = now
	return &c
}

// Location returns the aggregator's default day-boundary location.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Summarize computes the summary for the calendar day containing date,
// as seen in loc (nil means the aggregator default). A zero date means
// today.
//
// Running time logs never count towards TotalTime or TasksWorkedOn;
// they are reported in ActiveTimers with their elapsed time as of now.
func (a *Aggregator) Summarize(
	ctx context.Context,
	userID string,
	date time.Time,
	loc *time.Location,
) (*model.Summary, error) {
	if loc == nil {
		loc = a.loc
	}
	now := a.now()
	if date.IsZero() {
		date = now
	}
	start, end := DayBounds(date, loc)

	closed, err := a.store.FindAllByUserInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading day's time logs: %w", err)
	}
	open, err := a.store.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading running time logs: %w", err)
	}
	counts, err := a.store.CountTasksByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	sum := &model.Summary{
		Date:           start.Format(model.DateLayout),
		CompletedTasks: counts[model.TaskStatusCompleted],
		PendingTasks:   counts[model.TaskStatusPending],
		ActiveTimers:   make([]model.ActiveTimer, 0, len(open)),
		TimeLogs:       make([]model.SummaryLog, 0, len(closed)),
	}

	worked := make(map[string]struct{})
	for _, l := range closed {
		var duration int64
		if l.Duration != nil {
			duration = *l.Duration
		}
		sum.TotalTime += duration
		worked[l.TaskID] = struct{}{}
		sum.TimeLogs = append(sum.TimeLogs, model.SummaryLog{
			ID:        l.ID,
			TaskID:    l.TaskID,
			TaskTitle: l.TaskTitle,
			StartTime: l.StartTime,
			EndTime:   *l.EndTime,
			Duration:  duration,
		})
	}
	sum.TasksWorkedOn = len(worked)

	active := make(map[string]struct{})
	for _, l := range open {
		active[l.TaskID] = struct{}{}
		sum.ActiveTimers = append(sum.ActiveTimers, model.ActiveTimer{
			ID:          l.ID,
			TaskID:      l.TaskID,
			TaskTitle:   l.TaskTitle,
			StartTime:   l.StartTime,
			ElapsedTime: l.Elapsed(now),
		})
	}
	sum.InProgressTasks = len(active)

	return sum, nil
}

// DayBounds returns the first and last instants of the calendar day
// containing t in loc. Days are 23 or 25 hours long across DST changes.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	y, m, d := t.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, model.Invalid("date", "must be YYYY-MM-DD")
	}
	return t, nil
}
