package api

import (
	"context"
	"net/http"
	"net/url"
)

// Tasks lists all tasks.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := c.get(ctx, "/tasks", &tasks)
	return tasks, err
}

// Task returns one task.
func (c *Client) Task(ctx context.Context, taskUUID string) (Task, error) {
	var t Task
	err := c.get(ctx, "/tasks/"+url.PathEscape(taskUUID), &t)
	return t, err
}

// CreateTask creates a task and returns it.
func (c *Client) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	var t Task
	err := c.send(ctx, http.MethodPost, "/tasks", nt, &t)
	return t, err
}
