package testutil

import (
	"context"
	"testing"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// CreateUser inserts a user with the given email and a placeholder hash.
func CreateUser(t *testing.T, s store.Store, email string) *model.User {
	t.Helper()

	u := &model.User{Email: email, Name: email, PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

// CreateTask inserts a PENDING task owned by userID.
func CreateTask(t *testing.T, s store.Store, userID, title string) *model.Task {
	t.Helper()

	task := &model.Task{UserID: userID, Title: title}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("creating task %s: %v", title, err)
	}
	return task
}
