// Package users owns the user directory slice used by administrators to pick
// project members and task assignees.
package users

import (
	"context"
	"log/slog"
	"slices"

	"taskportal/internal/platform/logger"
	"taskportal/internal/state"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

type API interface {
	ListUsers(ctx context.Context, token string) ([]domain.User, error)
}

type Session interface {
	Token() string
}

type State struct {
	Users []domain.User
	state.Meta
}

func (s State) Clone() State {
	s.Users = slices.Clone(s.Users)
	s.Meta = s.Meta.Clone()
	return s
}

// Store is the single writer of the user slice.
type Store struct {
	api     API
	session Session
	state   *state.Container[State]
	logger  *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
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

// FetchAll replaces the directory. A response without a user list yields an
// empty directory.
func (s *Store) FetchAll(ctx context.Context) error {
	token := s.session.Token()
	if token == "" {
		return dErrors.ErrLoginRequired
	}
	s.state.Update(func(st *State) { st.Begin() })

	list, err := s.api.ListUsers(ctx, token)
	if err != nil {
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "user fetch failed", "error", err)
		return err
	}
	if list == nil {
		list = []domain.User{}
	}
	s.state.Update(func(st *State) {
		st.Resolve()
		st.Users = list
	})
	return nil
}

// PickerOption is a member or assignee picker entry.
type PickerOption struct {
	Label string
	Value domain.UserID
}

// Options lists the loaded users as picker entries labelled by email.
func (s *Store) Options() []PickerOption {
	return Options(s.state.Get().Users)
}

// Options maps users to picker entries labelled by email.
func Options(users []domain.User) []PickerOption {
	out := make([]PickerOption, 0, len(users))
	for _, u := range users {
		out = append(out, PickerOption{Label: u.Email, Value: u.ID})
	}
	return out
}
