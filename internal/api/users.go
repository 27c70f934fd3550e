package api

import (
	"context"
	"net/http"

	"taskportal/pkg/domain"
)

type userList struct {
	Users []domain.User `json:"users"`
}

// ListUsers returns every account. The backend only allows administrators.
func (c *Client) ListUsers(ctx context.Context, token string) ([]domain.User, error) {
	list, _, err := call[userList](ctx, c, request{
		op:     "users.list",
		method: http.MethodGet,
		route:  "/user",
		path:   "/user",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if list.Users == nil {
		return []domain.User{}, nil
	}
	return list.Users, nil
}
