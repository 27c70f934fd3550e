package api

import (
	"context"
	"net/http"

	"taskportal/pkg/domain"
)

// ProjectScope selects the project listing endpoint.
type ProjectScope int

const (
	// ScopeAll lists every project; administrators only.
	ScopeAll ProjectScope = iota
	// ScopeMember lists the projects the caller belongs to.
	ScopeMember
)

// ScopeFor picks the listing scope for a role.
func ScopeFor(role domain.Role) ProjectScope {
	if role.IsAdmin() {
		return ScopeAll
	}
	return ScopeMember
}

func (s ProjectScope) path() string {
	if s == ScopeAll {
		return "/project"
	}
	return "/project/user"
}

// ListProjects returns the projects visible in scope.
func (c *Client) ListProjects(ctx context.Context, token string, scope ProjectScope) ([]domain.Project, error) {
	projects, _, err := call[[]domain.Project](ctx, c, request{
		op:     "projects.list",
		method: http.MethodGet,
		route:  scope.path(),
		path:   scope.path(),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, token string, id domain.ProjectID) (*domain.Project, error) {
	project, _, err := call[domain.Project](ctx, c, request{
		op:     "projects.get",
		method: http.MethodGet,
		route:  "/project/{id}",
		path:   "/project/" + escape(id.String()),
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject posts a multipart project form.
func (c *Client) CreateProject(ctx context.Context, token string, form *Multipart) (*domain.Project, error) {
	project, _, err := call[domain.Project](ctx, c, request{
		op:     "projects.create",
		method: http.MethodPost,
		route:  "/project",
		path:   "/project",
		token:  token,
		form:   form,
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject patches a project with a multipart form.
func (c *Client) UpdateProject(ctx context.Context, token string, id domain.ProjectID, form *Multipart) (*domain.Project, error) {
	project, _, err := call[domain.Project](ctx, c, request{
		op:     "projects.update",
		method: http.MethodPatch,
		route:  "/project/{id}",
		path:   "/project/" + escape(id.String()),
		token:  token,
		form:   form,
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project. The response body is ignored.
func (c *Client) DeleteProject(ctx context.Context, token string, id domain.ProjectID) error {
	_, err := c.do(ctx, request{
		op:     "projects.delete",
		method: http.MethodDelete,
		route:  "/project/{id}",
		path:   "/project/" + escape(id.String()),
		token:  token,
	})
	return err
}
