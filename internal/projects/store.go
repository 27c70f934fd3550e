// Package projects owns the project slice: the visible project collection and
// the currently selected project.
package projects

import (
	"context"
	"log/slog"
	"slices"

	"taskportal/internal/api"
	"taskportal/internal/platform/logger"
	"taskportal/internal/state"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

// API is the subset of the remote client the project store needs.
type API interface {
	ListProjects(ctx context.Context, token string, scope api.ProjectScope) ([]domain.Project, error)
	GetProject(ctx context.Context, token string, id domain.ProjectID) (*domain.Project, error)
	CreateProject(ctx context.Context, token string, form *api.Multipart) (*domain.Project, error)
	UpdateProject(ctx context.Context, token string, id domain.ProjectID, form *api.Multipart) (*domain.Project, error)
	DeleteProject(ctx context.Context, token string, id domain.ProjectID) error
}

// Session supplies the credentials and role of the caller.
type Session interface {
	Token() string
	User() *domain.User
}

// State is the project slice. Projects are immutable values replaced whole.
type State struct {
	Projects []domain.Project
	Current  *domain.Project
	state.Meta
}

func (s State) Clone() State {
	s.Projects = slices.Clone(s.Projects)
	if s.Current != nil {
		p := *s.Current
		s.Current = &p
	}
	s.Meta = s.Meta.Clone()
	return s
}

// Store is the single writer of the project slice.
type Store struct {
	api     API
	session Session
	state   *state.Container[State]
	seq     state.Sequence
	fence   bool
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRequestFencing makes FetchAll discard any response that arrives after a
// newer FetchAll was started. Without it the last response to arrive wins.
func WithRequestFencing() Option {
	return func(s *Store) {
		s.fence = true
	}
}

func New(client API, session Session, opts ...Option) *Store {
	s := &Store{
		api:     client,
		session: session,
		state:   state.New(State{}),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) State() State {
	return s.state.Get()
}

func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

func (s *Store) token() (string, error) {
	token := s.session.Token()
	if token == "" {
		return "", dErrors.ErrLoginRequired
	}
	return token, nil
}

// FetchAll replaces the collection with the projects visible to the caller:
// every project for administrators, the caller's own otherwise.
func (s *Store) FetchAll(ctx context.Context) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	var role domain.Role
	if u := s.session.User(); u != nil {
		role = u.Role
	}
	scope := api.ScopeFor(role)

	tag := s.seq.Next()
	s.state.Update(func(st *State) { st.Begin() })

	projects, err := s.api.ListProjects(ctx, token, scope)
	if s.fence && !s.seq.IsLatest(tag) {
		s.logger.DebugContext(ctx, "discarding stale project list", "request", tag)
		return state.ErrSuperseded
	}
	if err != nil {
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "project fetch failed", "error", err)
		return err
	}
	s.state.Update(func(st *State) {
		st.Resolve()
		st.Projects = projects
	})
	return nil
}

// Fetch loads one project and makes it the current selection.
func (s *Store) Fetch(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	s.state.Update(func(st *State) { st.Begin() })

	project, err := s.api.GetProject(ctx, token, id)
	if err != nil {
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "project fetch failed", "project_id", id, "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		st.Resolve()
		p := *project
		st.Current = &p
	})
	return project, nil
}

// Create submits a new project and prepends the server's copy.
func (s *Store) Create(ctx context.Context, form Form) (*domain.Project, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	body, err := form.Multipart()
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		return nil, err
	}
	project, err := s.api.CreateProject(ctx, token, body)
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "project create failed", "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		st.Projects = append([]domain.Project{*project}, st.Projects...)
	})
	s.logger.InfoContext(ctx, "project created", "project_id", project.ID)
	return project, nil
}

// Update submits an edit and replaces the matching entry. A response for a
// project no longer in the collection changes nothing.
func (s *Store) Update(ctx context.Context, id domain.ProjectID, form Form) (*domain.Project, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	body, err := form.Multipart()
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		return nil, err
	}
	project, err := s.api.UpdateProject(ctx, token, id, body)
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "project update failed", "project_id", id, "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		if i := slices.IndexFunc(st.Projects, func(p domain.Project) bool { return p.ID == project.ID }); i >= 0 {
			st.Projects[i] = *project
		}
		if st.Current != nil && st.Current.ID == project.ID {
			p := *project
			st.Current = &p
		}
	})
	return project, nil
}

// Delete removes a project on the server and then locally.
func (s *Store) Delete(ctx context.Context, id domain.ProjectID) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	if err := s.api.DeleteProject(ctx, token, id); err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "project delete failed", "project_id", id, "error", err)
		return err
	}
	s.state.Update(func(st *State) {
		st.Projects = slices.DeleteFunc(st.Projects, func(p domain.Project) bool { return p.ID == id })
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
		}
	})
	return nil
}

// SetCurrent changes the local selection. A nil project clears it.
func (s *Store) SetCurrent(project *domain.Project) {
	s.state.Update(func(st *State) {
		if project == nil {
			st.Current = nil
			return
		}
		p := *project
		st.Current = &p
	})
}
