// Package tasks owns the task slice: the tasks of the project (or projects)
// currently in view.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"taskportal/internal/platform/logger"
	"taskportal/internal/state"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

// API is the subset of the remote client the task store needs.
type API interface {
	ListTasks(ctx context.Context, token string, projectID domain.ProjectID) ([]domain.Task, error)
	CreateTask(ctx context.Context, token string, in domain.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, token string, id domain.TaskID, in domain.TaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, token string, id domain.TaskID) error
}

// Session supplies the caller's token.
type Session interface {
	Token() string
}

// State is the task slice. Tasks are immutable values replaced whole.
type State struct {
	Tasks []domain.Task
	state.Meta
}

func (s State) Clone() State {
	s.Tasks = slices.Clone(s.Tasks)
	s.Meta = s.Meta.Clone()
	return s
}

// Store is the single writer of the task slice.
type Store struct {
	api     API
	session Session
	state   *state.Container[State]
	seq     state.Sequence
	fence   bool
	// maxConcurrent bounds FetchForProjects fan-out.
	maxConcurrent int
	logger        *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRequestFencing discards fetch responses that arrive after a newer fetch
// was started.
func WithRequestFencing() Option {
	return func(s *Store) {
		s.fence = true
	}
}

// WithMaxConcurrent bounds how many project task lists FetchForProjects
// requests at once.
func WithMaxConcurrent(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// New constructs a task store.
func New(client API, session Session, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("task api is required")
	}
	if session == nil {
		return nil, errors.New("session is required")
	}
	s := &Store{
		api:           client,
		session:       session,
		state:         state.New(State{}),
		maxConcurrent: 4,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
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

// FetchByProject replaces the collection with one project's tasks.
func (s *Store) FetchByProject(ctx context.Context, projectID domain.ProjectID) error {
	return s.fetch(ctx, func(token string) ([]domain.Task, error) {
		return s.api.ListTasks(ctx, token, projectID)
	})
}

// FetchForProjects replaces the collection with the tasks of several projects,
// fetched concurrently and merged in the order of ids. Any failure fails the
// whole fetch and leaves the previous collection in place.
func (s *Store) FetchForProjects(ctx context.Context, ids []domain.ProjectID) error {
	return s.fetch(ctx, func(token string) ([]domain.Task, error) {
		results := make([][]domain.Task, len(ids))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.maxConcurrent)
		for i, id := range ids {
			g.Go(func() error {
				list, err := s.api.ListTasks(gctx, token, id)
				if err != nil {
					return err
				}
				results[i] = list
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return slices.Concat(results...), nil
	})
}

func (s *Store) fetch(ctx context.Context, load func(token string) ([]domain.Task, error)) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	tag := s.seq.Next()
	s.state.Update(func(st *State) { st.Begin() })

	list, err := load(token)
	if s.fence && !s.seq.IsLatest(tag) {
		s.logger.DebugContext(ctx, "discarding stale task list", "request", tag)
		return state.ErrSuperseded
	}
	if err != nil {
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "task fetch failed", "error", err)
		return err
	}
	if list == nil {
		list = []domain.Task{}
	}
	s.state.Update(func(st *State) {
		st.Resolve()
		st.Tasks = list
	})
	return nil
}

// Create submits a new task and prepends the server's copy.
func (s *Store) Create(ctx context.Context, in domain.TaskInput) (*domain.Task, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		return nil, err
	}
	task, err := s.api.CreateTask(ctx, token, in)
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "task create failed", "project_id", in.ProjectID, "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		st.Tasks = append([]domain.Task{*task}, st.Tasks...)
	})
	s.logger.InfoContext(ctx, "task created", "task_id", task.ID, "project_id", task.ProjectID)
	return task, nil
}

// Update submits a whole-record edit and replaces the matching task. A
// response for a task no longer in the collection changes nothing.
func (s *Store) Update(ctx context.Context, id domain.TaskID, in domain.TaskInput) (*domain.Task, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	if err := in.Validate(); err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		return nil, err
	}
	task, err := s.api.UpdateTask(ctx, token, id, in)
	if err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "task update failed", "task_id", id, "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		if i := slices.IndexFunc(st.Tasks, func(t domain.Task) bool { return t.ID == task.ID }); i >= 0 {
			st.Tasks[i] = *task
		}
	})
	return task, nil
}

// Delete removes a task on the server and then locally.
func (s *Store) Delete(ctx context.Context, id domain.TaskID) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	s.state.Update(func(st *State) { st.ClearErrors() })

	if err := s.api.DeleteTask(ctx, token, id); err != nil {
		s.state.Update(func(st *State) { st.Record(err) })
		s.logger.WarnContext(ctx, "task delete failed", "task_id", id, "error", err)
		return err
	}
	s.state.Update(func(st *State) {
		st.Tasks = slices.DeleteFunc(st.Tasks, func(t domain.Task) bool { return t.ID == id })
	})
	return nil
}
