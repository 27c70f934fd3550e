package api

import (
	"context"
	"net/http"

	"taskportal/pkg/domain"
)

// ListMessages returns the stored chat history of a project room.
func (c *Client) ListMessages(ctx context.Context, token string, projectID domain.ProjectID) ([]domain.Message, error) {
	msgs, _, err := call[[]domain.Message](ctx, c, request{
		op:     "messages.list",
		method: http.MethodGet,
		route:  "/message/{projectId}",
		path:   "/message/" + escape(projectID.String()),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}
