package summary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/summary"
	"github.com/nhle/timetrack/internal/tracker"
	"github.com/nhle/timetrack/tests/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSummarize_EmptyUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	u := testutil.CreateUser(t, s, "a@example.com")
	agg := summary.New(s, time.UTC)

	got, err := agg.Summarize(context.Background(), u.ID, time.Time{}, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.TotalTime != 0 || got.CompletedTasks != 0 || got.PendingTasks != 0 ||
		got.InProgressTasks != 0 || got.TasksWorkedOn != 0 {
		t.Errorf("non-zero aggregates: %+v", got)
	}
	if got.ActiveTimers == nil || len(got.ActiveTimers) != 0 {
		t.Errorf("ActiveTimers = %#v, want empty slice", got.ActiveTimers)
	}
	if got.TimeLogs == nil || len(got.TimeLogs) != 0 {
		t.Errorf("TimeLogs = %#v, want empty slice", got.TimeLogs)
	}
}

func TestSummarize_ClosedAndRunningLogs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "T")
	other := testutil.CreateTask(t, s, u.ID, "Other")

	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	start := day.Add(10 * time.Hour)

	// 10:00:00 → 10:00:45 on T.
	svc := tracker.New(s).WithClock(fixedClock(start.Add(45 * time.Second)))
	log, err := svc.Start(ctx, task.ID, u.ID, start)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Stop(ctx, log.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	// Other has been running since 11:00 and is never stopped.
	running, err := svc.Start(ctx, other.ID, u.ID, day.Add(11*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	now := day.Add(11*time.Hour + 90*time.Second)
	agg := summary.New(s, time.UTC).WithClock(fixedClock(now))
	got, err := agg.Summarize(ctx, u.ID, day, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if got.Date != "2026-10-18" {
		t.Errorf("Date = %q", got.Date)
	}
	if got.TotalTime != 45 {
		t.Errorf("TotalTime = %d, want 45", got.TotalTime)
	}
	if got.TasksWorkedOn != 1 {
		t.Errorf("TasksWorkedOn = %d, want 1", got.TasksWorkedOn)
	}
	if got.InProgressTasks != 1 {
		t.Errorf("InProgressTasks = %d, want 1", got.InProgressTasks)
	}
	if got.PendingTasks != 2 {
		t.Errorf("PendingTasks = %d, want 2", got.PendingTasks)
	}
	if len(got.TimeLogs) != 1 || got.TimeLogs[0].TaskTitle != "T" || got.TimeLogs[0].Duration != 45 {
		t.Errorf("TimeLogs = %+v", got.TimeLogs)
	}
	if len(got.ActiveTimers) != 1 {
		t.Fatalf("ActiveTimers = %+v", got.ActiveTimers)
	}
	active := got.ActiveTimers[0]
	if active.ID != running.ID || active.TaskTitle != "Other" || active.ElapsedTime != 90 {
		t.Errorf("active timer = %+v, want elapsed 90", active)
	}
}

func TestSummarize_RunningLogFromEarlierDayIsStillActive(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "T")

	yesterday := time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC)
	if _, err := tracker.New(s).Start(ctx, task.ID, u.ID, yesterday); err != nil {
		t.Fatal(err)
	}

	now := yesterday.Add(2 * time.Hour)
	got, err := summary.New(s, time.UTC).WithClock(fixedClock(now)).
		Summarize(ctx, u.ID, time.Time{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date != "2026-10-18" {
		t.Errorf("Date = %q, want today", got.Date)
	}
	if len(got.ActiveTimers) != 1 || got.ActiveTimers[0].ElapsedTime != 7200 {
		t.Errorf("ActiveTimers = %+v", got.ActiveTimers)
	}
	if got.TotalTime != 0 {
		t.Errorf("TotalTime = %d, want 0", got.TotalTime)
	}
}

func TestSummarize_DeletedTaskLogsExcluded(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "T")

	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	for i := 0; i < 3; i++ {
		svc := tracker.New(s).WithClock(fixedClock(start.Add(10 * time.Minute)))
		l, err := svc.Start(ctx, task.ID, u.ID, start)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Stop(ctx, l.ID, u.ID); err != nil {
			t.Fatal(err)
		}
		start = start.Add(time.Hour)
	}

	agg := summary.New(s, time.UTC)
	before, err := agg.Summarize(ctx, u.ID, day, nil)
	if err != nil {
		t.Fatal(err)
	}
	if before.TotalTime != 1800 || len(before.TimeLogs) != 3 {
		t.Fatalf("before delete: %+v", before)
	}

	if err := s.DeleteTask(ctx, task.ID, u.ID); err != nil {
		t.Fatal(err)
	}
	after, err := agg.Summarize(ctx, u.ID, day, nil)
	if err != nil {
		t.Fatal(err)
	}
	if after.TotalTime != 0 || len(after.TimeLogs) != 0 || after.TasksWorkedOn != 0 {
		t.Fatalf("after delete: %+v", after)
	}
}

func TestSummarize_LocationMovesDayBoundary(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "T")

	// 2026-10-18 23:30 UTC is already 2026-10-19 in UTC+2.
	start := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	svc := tracker.New(s).WithClock(fixedClock(start.Add(time.Minute)))
	l, err := svc.Start(ctx, task.ID, u.ID, start)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Stop(ctx, l.ID, u.ID); err != nil {
		t.Fatal(err)
	}

	plus2 := time.FixedZone("UTC+2", 2*60*60)
	agg := summary.New(s, time.UTC)

	utcDay, err := agg.Summarize(ctx, u.ID, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatal(err)
	}
	if utcDay.TotalTime != 60 {
		t.Errorf("UTC 18th TotalTime = %d, want 60", utcDay.TotalTime)
	}

	date, err := summary.ParseDate("2026-10-19", plus2)
	if err != nil {
		t.Fatal(err)
	}
	shifted, err := agg.Summarize(ctx, u.ID, date, plus2)
	if err != nil {
		t.Fatal(err)
	}
	if shifted.Date != "2026-10-19" || shifted.TotalTime != 60 {
		t.Errorf("UTC+2 19th = %+v, want TotalTime 60", shifted)
	}
}

type failingStore struct{}

func (failingStore) FindAllByUserInRange(context.Context, string, time.Time, time.Time) ([]model.TimeLog, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) FindOpenByUser(context.Context, string) ([]model.TimeLog, error) {
	return nil, nil
}

func (failingStore) CountTasksByStatus(context.Context, string) (map[string]int, error) {
	return nil, nil
}

func TestSummarize_StoreErrorPropagates(t *testing.T) {
	_, err := summary.New(failingStore{}, time.UTC).Summarize(context.Background(), "u", time.Time{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	start, end := summary.DayBounds(time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC), loc)

	wantStart := time.Date(2026, 10, 17, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if got := end.Sub(start); got != 24*time.Hour-time.Nanosecond {
		t.Errorf("day length = %v", got)
	}
}

func TestDayBounds_DST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks go back on 2026-11-01.
	start, end := summary.DayBounds(time.Date(2026, 11, 1, 12, 0, 0, 0, loc), loc)
	if got := end.Sub(start); got != 25*time.Hour-time.Nanosecond {
		t.Errorf("day length = %v, want 25h", got)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2026-13-01", "18/10/2026", "2026-10-18T00:00:00Z"} {
		if _, err := summary.ParseDate(in, time.UTC); !model.IsValidationError(err) {
			t.Errorf("ParseDate(%q) = %v, want validation error", in, err)
		}
	}
}
