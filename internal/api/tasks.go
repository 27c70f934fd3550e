package api

import (
	"context"
	"net/http"

	"taskportal/pkg/domain"
)

// ListTasks returns the tasks of one project.
func (c *Client) ListTasks(ctx context.Context, token string, projectID domain.ProjectID) ([]domain.Task, error) {
	tasks, _, err := call[[]domain.Task](ctx, c, request{
		op:     "tasks.list",
		method: http.MethodGet,
		route:  "/task/{projectId}",
		path:   "/task/" + escape(projectID.String()),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, token string, in domain.TaskInput) (*domain.Task, error) {
	task, _, err := call[domain.Task](ctx, c, request{
		op:     "tasks.create",
		method: http.MethodPost,
		route:  "/task",
		path:   "/task",
		token:  token,
		body:   in,
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, token string, id domain.TaskID, in domain.TaskInput) (*domain.Task, error) {
	task, _, err := call[domain.Task](ctx, c, request{
		op:     "tasks.update",
		method: http.MethodPatch,
		route:  "/task/{id}",
		path:   "/task/" + escape(id.String()),
		token:  token,
		body:   in,
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, token string, id domain.TaskID) error {
	_, err := c.do(ctx, request{
		op:     "tasks.delete",
		method: http.MethodDelete,
		route:  "/task/{id}",
		path:   "/task/" + escape(id.String()),
		token:  token,
	})
	return err
}
