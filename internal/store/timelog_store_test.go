package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/tests/testutil"
)

func TestCreateTimeLog_SecondOpenLogConflicts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "write report")

	start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	first, err := s.CreateTimeLog(ctx, task.ID, u.ID, start)
	if err != nil {
		t.Fatalf("CreateTimeLog: %v", err)
	}
	if !first.IsRunning() || first.Duration != nil {
		t.Fatalf("new log should be running with no duration: %+v", first)
	}

	_, err = s.CreateTimeLog(ctx, task.ID, u.ID, start.Add(time.Minute))
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("second open log: got %v, want ErrConflict", err)
	}

	// Once the first log is closed a new one may start.
	if _, err := s.CloseTimeLog(ctx, first.ID, u.ID, start.Add(time.Minute), 60); err != nil {
		t.Fatalf("CloseTimeLog: %v", err)
	}
	if _, err := s.CreateTimeLog(ctx, task.ID, u.ID, start.Add(2*time.Minute)); err != nil {
		t.Fatalf("CreateTimeLog after close: %v", err)
	}
}

func TestCloseTimeLog(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	other := testutil.CreateUser(t, s, "b@example.com")
	task := testutil.CreateTask(t, s, u.ID, "write report")

	start := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Second)
	log, err := s.CreateTimeLog(ctx, task.ID, u.ID, start)
	if err != nil {
		t.Fatalf("CreateTimeLog: %v", err)
	}

	if _, err := s.CloseTimeLog(ctx, log.ID, other.ID, end, 45); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("close by other user: got %v, want ErrNotFound", err)
	}

	closed, err := s.CloseTimeLog(ctx, log.ID, u.ID, end, 45)
	if err != nil {
		t.Fatalf("CloseTimeLog: %v", err)
	}
	if closed.EndTime == nil || !closed.EndTime.Equal(end) {
		t.Errorf("EndTime = %v, want %v", closed.EndTime, end)
	}
	if closed.Duration == nil || *closed.Duration != 45 {
		t.Errorf("Duration = %v, want 45", closed.Duration)
	}
	if closed.TaskTitle != "write report" {
		t.Errorf("TaskTitle = %q", closed.TaskTitle)
	}

	_, err = s.CloseTimeLog(ctx, log.ID, u.ID, end.Add(time.Hour), 3645)
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("second close: got %v, want ErrInvalidState", err)
	}

	after, err := s.GetTimeLog(ctx, log.ID, u.ID)
	if err != nil {
		t.Fatalf("GetTimeLog: %v", err)
	}
	if !after.EndTime.Equal(end) || *after.Duration != 45 {
		t.Errorf("failed close modified the log: %+v", after)
	}
}

func TestFindOpenByTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	task := testutil.CreateTask(t, s, u.ID, "t")

	got, err := s.FindOpenByTask(ctx, task.ID)
	if err != nil || got != nil {
		t.Fatalf("FindOpenByTask on idle task = %v, %v; want nil, nil", got, err)
	}

	log, err := s.CreateTimeLog(ctx, task.ID, u.ID, time.Now())
	if err != nil {
		t.Fatalf("CreateTimeLog: %v", err)
	}
	got, err = s.FindOpenByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindOpenByTask: %v", err)
	}
	if got == nil || got.ID != log.ID {
		t.Fatalf("FindOpenByTask = %+v, want %s", got, log.ID)
	}
}

func TestFindAllByUserInRange(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	other := testutil.CreateUser(t, s, "b@example.com")
	task := testutil.CreateTask(t, s, u.ID, "t")
	otherTask := testutil.CreateTask(t, s, other.ID, "t")

	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	endOfDay := day.Add(24*time.Hour - time.Nanosecond)

	closeAt := func(taskID, userID string, start time.Time, secs int64) {
		t.Helper()
		l, err := s.CreateTimeLog(ctx, taskID, userID, start)
		if err != nil {
			t.Fatalf("CreateTimeLog: %v", err)
		}
		if _, err := s.CloseTimeLog(ctx, l.ID, userID, start.Add(time.Duration(secs)*time.Second), secs); err != nil {
			t.Fatalf("CloseTimeLog: %v", err)
		}
	}

	closeAt(task.ID, u.ID, day.Add(-time.Second), 10)      // previous day
	closeAt(task.ID, u.ID, day, 20)                        // first instant
	closeAt(task.ID, u.ID, day.Add(9*time.Hour+500), 30)   // fractional seconds
	closeAt(task.ID, u.ID, endOfDay, 40)                   // last instant
	closeAt(task.ID, u.ID, day.Add(24*time.Hour), 50)      // next day
	closeAt(otherTask.ID, other.ID, day.Add(time.Hour), 5) // other user

	// Running logs are excluded.
	if _, err := s.CreateTimeLog(ctx, task.ID, u.ID, day.Add(10*time.Hour)); err != nil {
		t.Fatalf("CreateTimeLog: %v", err)
	}

	logs, err := s.FindAllByUserInRange(ctx, u.ID, day, endOfDay)
	if err != nil {
		t.Fatalf("FindAllByUserInRange: %v", err)
	}

	var durations []int64
	for _, l := range logs {
		durations = append(durations, *l.Duration)
	}
	want := []int64{20, 30, 40}
	if len(durations) != len(want) {
		t.Fatalf("durations = %v, want %v", durations, want)
	}
	for i := range want {
		if durations[i] != want[i] {
			t.Fatalf("durations = %v, want %v", durations, want)
		}
	}
}

func TestListTimeLogs_NewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	a := testutil.CreateTask(t, s, u.ID, "a")
	b := testutil.CreateTask(t, s, u.ID, "b")

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	if _, err := s.CreateTimeLog(ctx, a.ID, u.ID, base); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTimeLog(ctx, b.ID, u.ID, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	logs, err := s.ListTimeLogs(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListTimeLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].TaskTitle != "b" || logs[1].TaskTitle != "a" {
		t.Fatalf("unexpected order: %+v", logs)
	}
}

func TestDeleteTimeLog(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, s, "a@example.com")
	other := testutil.CreateUser(t, s, "b@example.com")
	task := testutil.CreateTask(t, s, u.ID, "t")

	log, err := s.CreateTimeLog(ctx, task.ID, u.ID, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTimeLog(ctx, log.ID, other.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("delete by other user: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteTimeLog(ctx, log.ID, u.ID); err != nil {
		t.Fatalf("DeleteTimeLog: %v", err)
	}
	if _, err := s.GetTimeLog(ctx, log.ID, u.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTimeLog after delete: got %v, want ErrNotFound", err)
	}
}
