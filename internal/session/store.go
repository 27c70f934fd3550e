// Package session owns the authentication slice: the access token, the cached
// current user and the lifecycle of login, registration and logout.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskportal/internal/api"
	"taskportal/internal/platform/logger"
	"taskportal/internal/state"
	"taskportal/internal/tokenstore"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/sentinel"
)

// API is the subset of the remote client the session needs.
type API interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, form *api.Multipart) (*api.Registration, error)
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

// State is the session slice. Token and User have independent lifecycles:
// a failed user refetch clears User but keeps Token.
type State struct {
	Token string
	User  *domain.User
	state.Meta
}

func (s State) Clone() State {
	if s.User != nil {
		u := *s.User
		if u.ProfileImage != nil {
			img := *u.ProfileImage
			u.ProfileImage = &img
		}
		s.User = &u
	}
	s.Meta = s.Meta.Clone()
	return s
}

// Authenticated reports whether a token is held.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Store is the single writer of the session slice.
type Store struct {
	api    API
	tokens tokenstore.Store
	state  *state.Container[State]
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a session store. tokens may be nil, in which case the token
// lives only in memory.
func New(client API, tokens tokenstore.Store, opts ...Option) *Store {
	if tokens == nil {
		tokens = tokenstore.NewMemory()
	}
	s := &Store{
		api:    client,
		tokens: tokens,
		state:  state.New(State{}),
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the slice.
func (s *Store) State() State {
	return s.state.Get()
}

// Subscribe calls fn after every change to the slice.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

// Token returns the held access token, empty when logged out.
func (s *Store) Token() string {
	return s.state.Get().Token
}

// User returns the cached current user, nil when not loaded.
func (s *Store) User() *domain.User {
	return s.state.Get().User
}

// Restore loads the persisted token, if any. It does not fetch the user.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.tokens.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read stored session")
	}
	s.state.Update(func(st *State) {
		st.Token = token
	})
	return nil
}

// Login exchanges credentials for a session. On failure the previous session
// is left untouched.
func (s *Store) Login(ctx context.Context, identifier, password string) (*api.LoginResult, error) {
	s.state.Update(func(st *State) { st.Begin() })

	res, err := s.api.Login(ctx, api.Credentials{Identifier: identifier, Password: password})
	if err == nil && res.AccessToken == "" {
		err = dErrors.New(dErrors.CodeUnauthorized, "login response carried no access token")
	}
	if err != nil {
		err = authError(err)
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "login failed", "identifier", identifier, "error", err)
		return nil, err
	}

	user := res.User
	s.state.Update(func(st *State) {
		st.Resolve()
		st.Token = res.AccessToken
		st.User = &user
	})
	if err := s.tokens.Save(ctx, res.AccessToken); err != nil {
		s.logger.WarnContext(ctx, "failed to persist session token", "error", err)
	}
	s.logger.InfoContext(ctx, "logged in", "user_id", user.ID, "role", user.Role)
	return res, nil
}

// authError maps a login rejection to an AuthError. Field errors and network
// failures keep their own codes.
func authError(err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeUnavailable),
		dErrors.HasCode(err, dErrors.CodeUnauthorized):
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnauthorized, dErrors.Message(err))
}

// RegisterForm is the sign-up form.
type RegisterForm struct {
	Name     string
	Username string
	Email    string
	Password string
	// ProfileImage is optional; Filename names the upload.
	ProfileImage io.Reader
	Filename     string
}

// Multipart encodes the form in the field order the backend expects.
func (f RegisterForm) Multipart() *api.Multipart {
	form := api.NewMultipart().
		Field("name", f.Name).
		Field("username", f.Username).
		Field("email", f.Email).
		Field("password", f.Password)
	if f.ProfileImage != nil {
		name := f.Filename
		if name == "" {
			name = "profile"
		}
		form.File("profileImage", name, f.ProfileImage)
	}
	return form
}

// Register creates an account. It does not start a session.
func (s *Store) Register(ctx context.Context, form RegisterForm) (*api.Registration, error) {
	s.state.Update(func(st *State) { st.Begin() })

	reg, err := s.api.Register(ctx, form.Multipart())
	if err != nil {
		s.state.Update(func(st *State) { st.Reject(err) })
		s.logger.WarnContext(ctx, "registration failed", "email", form.Email, "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) { st.Resolve() })
	s.logger.InfoContext(ctx, "registered", "user_id", reg.User.ID)
	return reg, nil
}

// CurrentUser refetches the user behind the held token. Without a token it
// returns ErrLoginRequired and makes no call.
func (s *Store) CurrentUser(ctx context.Context) (*domain.User, error) {
	token := s.Token()
	if token == "" {
		return nil, dErrors.ErrLoginRequired
	}
	s.state.Update(func(st *State) { st.Begin() })

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		s.state.Update(func(st *State) {
			st.Reject(err)
			st.User = nil
		})
		s.logger.WarnContext(ctx, "current user fetch failed", "error", err)
		return nil, err
	}
	s.state.Update(func(st *State) {
		st.Resolve()
		st.User = user
	})
	return user, nil
}

// Logout ends the session locally. It always succeeds in memory; a failure to
// clear the persisted token is returned after the slice is reset.
func (s *Store) Logout(ctx context.Context) error {
	s.state.Update(func(st *State) {
		*st = State{}
	})
	if err := s.tokens.Delete(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear persisted token", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear stored session")
	}
	s.logger.InfoContext(ctx, "logged out")
	return nil
}

// TokenExpiry reads the exp claim of the held token without verifying it.
// ok is false when there is no token or it carries no expiry.
func (s *Store) TokenExpiry() (exp time.Time, ok bool) {
	return Expiry(s.Token())
}

// Expiry reads the exp claim of an access token without verifying it.
func Expiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
