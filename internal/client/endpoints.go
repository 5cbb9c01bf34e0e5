package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nhle/timetrack/internal/model"
)

type userEnvelope struct {
	User *model.User `json:"user"`
}

type taskEnvelope struct {
	Task *model.Task `json:"task"`
}

type timeLogEnvelope struct {
	TimeLog *model.TimeLog `json:"timeLog"`
}

// Register creates an account and keeps the session token it returns.
func (c *Client) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	return c.authenticate(ctx, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

// Login authenticates and keeps the session token it returns.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*model.User, error) {
	var resp userEnvelope
	header, err := c.do(ctx, http.MethodPost, path, body, &resp)
	if err != nil {
		return nil, err
	}
	token := header.Get(tokenHeader)
	if token == "" {
		return nil, fmt.Errorf("%s: server returned no session token", path)
	}
	c.SetToken(token)
	return resp.User, nil
}

// Logout ends the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// ListTasks returns the user's tasks with their totals and running logs.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp struct {
		Tasks []model.Task `json:"tasks"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask creates a task. description may be nil.
func (c *Client) CreateTask(ctx context.Context, title string, description *string) (*model.Task, error) {
	body := map[string]interface{}{"title": title}
	if description != nil {
		body["description"] = *description
	}
	var resp taskEnvelope
	if _, err := c.do(ctx, http.MethodPost, "/tasks", body, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// GetTask returns one task with its total tracked time.
func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var resp taskEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// UpdateTask applies a partial edit.
func (c *Client) UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) (*model.Task, error) {
	var resp taskEnvelope
	if _, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), upd, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// DeleteTask deletes a task and its time logs.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
	return err
}

// StartTimeLog opens a time log for taskID starting at start.
func (c *Client) StartTimeLog(ctx context.Context, taskID string, start time.Time) (*model.TimeLog, error) {
	body := map[string]string{
		"taskId":    taskID,
		"startTime": start.UTC().Format(time.RFC3339Nano),
	}
	var resp timeLogEnvelope
	if _, err := c.do(ctx, http.MethodPost, "/time-logs", body, &resp); err != nil {
		return nil, err
	}
	return resp.TimeLog, nil
}

// StopTimeLog closes a running time log.
func (c *Client) StopTimeLog(ctx context.Context, id string) (*model.TimeLog, error) {
	var resp timeLogEnvelope
	if _, err := c.do(ctx, http.MethodPost, "/time-logs/"+url.PathEscape(id)+"/stop", nil, &resp); err != nil {
		return nil, err
	}
	return resp.TimeLog, nil
}

// DeleteTimeLog deletes a time log.
func (c *Client) DeleteTimeLog(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/time-logs/"+url.PathEscape(id), nil, nil)
	return err
}

// ListTimeLogs returns all of the user's time logs, newest first.
func (c *Client) ListTimeLogs(ctx context.Context) ([]model.TimeLog, error) {
	var resp struct {
		TimeLogs []model.TimeLog `json:"timeLogs"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/time-logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.TimeLogs, nil
}

// Summary fetches the daily summary. An empty date means today; tz, if
// set, asks the server to bound the day in that IANA zone.
func (c *Client) Summary(ctx context.Context, date, tz string) (*model.Summary, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if tz != "" {
		q.Set("tz", tz)
	}
	path := "/summary"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var sum model.Summary
	if _, err := c.do(ctx, http.MethodGet, path, nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}
