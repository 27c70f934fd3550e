package api

import (
	"context"
	"net/http"

	"taskportal/pkg/domain"
)

// Credentials is the login body. Identifier is an email or a username.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// Registration is the data of a successful registration.
type Registration struct {
	User    domain.User
	Message string
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	res, _, err := call[*LoginResult](ctx, c, request{
		op:     "auth.login",
		method: http.MethodPost,
		route:  "/auth/login",
		path:   "/auth/login",
		body:   creds,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &LoginResult{}
	}
	return res, nil
}

// Register creates an account from a multipart form (name, username, email,
// password and an optional profileImage file). It does not log in.
func (c *Client) Register(ctx context.Context, form *Multipart) (*Registration, error) {
	user, msg, err := call[domain.User](ctx, c, request{
		op:     "auth.register",
		method: http.MethodPost,
		route:  "/auth/register",
		path:   "/auth/register",
		form:   form,
	})
	if err != nil {
		return nil, err
	}
	return &Registration{User: user, Message: msg}, nil
}

// CurrentUser fetches the account that owns token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	user, _, err := call[domain.User](ctx, c, request{
		op:     "user.current",
		method: http.MethodGet,
		route:  "/user/current-user",
		path:   "/user/current-user",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
