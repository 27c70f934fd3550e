package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"taskportal/internal/api"
	"taskportal/internal/tokenstore"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/sentinel"
)

type fakeAPI struct {
	loginRes    *api.LoginResult
	loginErr    error
	creds       []api.Credentials
	regForm     *api.Multipart
	regErr      error
	currentUser *domain.User
	currentErr  error
	tokens      []string
}

func (f *fakeAPI) Login(_ context.Context, creds api.Credentials) (*api.LoginResult, error) {
	f.creds = append(f.creds, creds)
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Register(_ context.Context, form *api.Multipart) (*api.Registration, error) {
	f.regForm = form
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &api.Registration{User: domain.User{ID: "u-new"}, Message: "User registered"}, nil
}

func (f *fakeAPI) CurrentUser(_ context.Context, token string) (*domain.User, error) {
	f.tokens = append(f.tokens, token)
	return f.currentUser, f.currentErr
}

type StoreSuite struct {
	suite.Suite
	api    *fakeAPI
	tokens *tokenstore.Memory
	store  *Store
	ctx    context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.api = &fakeAPI{}
	s.tokens = tokenstore.NewMemory()
	s.store = New(s.api, s.tokens)
	s.ctx = context.Background()
}

func alice() domain.User {
	return domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleEmployee}
}

func (s *StoreSuite) TestLogin() {
	s.Run("stores and persists the token", func() {
		s.api.loginRes = &api.LoginResult{User: alice(), AccessToken: "tok-1"}

		res, err := s.store.Login(s.ctx, "alice@example.com", "secret")
		s.Require().NoError(err)
		s.Equal("tok-1", res.AccessToken)

		st := s.store.State()
		s.Equal("tok-1", st.Token)
		s.Require().NotNil(st.User)
		s.Equal(domain.UserID("u1"), st.User.ID)
		s.False(st.Loading)

		persisted, err := s.tokens.Load(s.ctx)
		s.Require().NoError(err)
		s.Equal("tok-1", persisted)
		s.Equal(api.Credentials{Identifier: "alice@example.com", Password: "secret"}, s.api.creds[0])
	})

	s.Run("failure leaves the prior session untouched", func() {
		s.api.loginRes = nil
		s.api.loginErr = dErrors.New(dErrors.CodeBadRequest, "Invalid credentials").WithStatus(400)

		_, err := s.store.Login(s.ctx, "alice@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("Invalid credentials", dErrors.Message(err))

		st := s.store.State()
		s.Equal("tok-1", st.Token)
		s.NotNil(st.User)
		s.Equal("Invalid credentials", st.Error)
		s.False(st.Loading)
	})

	s.Run("network failures keep their code", func() {
		s.api.loginErr = dErrors.New(dErrors.CodeUnavailable, "could not reach the server")
		_, err := s.store.Login(s.ctx, "alice", "secret")
		s.True(dErrors.IsNetwork(err))
	})
}

func (s *StoreSuite) TestLoginWithoutTokenIsRejected() {
	s.api.loginRes = &api.LoginResult{User: alice()}
	_, err := s.store.Login(s.ctx, "alice", "secret")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Empty(s.store.Token())
}

func (s *StoreSuite) TestRestore() {
	s.Run("missing token is not an error", func() {
		s.Require().NoError(s.store.Restore(s.ctx))
		s.Empty(s.store.Token())
	})

	s.Run("loads the persisted token without fetching the user", func() {
		s.Require().NoError(s.tokens.Save(s.ctx, "tok-9"))
		s.Require().NoError(s.store.Restore(s.ctx))
		s.Equal("tok-9", s.store.Token())
		s.Nil(s.store.User())
		s.Empty(s.api.tokens)
	})
}

func (s *StoreSuite) TestCurrentUser() {
	s.Run("without a token asks for login and makes no call", func() {
		_, err := s.store.CurrentUser(s.ctx)
		s.ErrorIs(err, dErrors.ErrLoginRequired)
		s.Empty(s.api.tokens)
	})

	s.Require().NoError(s.tokens.Save(s.ctx, "tok-2"))
	s.Require().NoError(s.store.Restore(s.ctx))

	s.Run("success replaces the cached user", func() {
		u := alice()
		s.api.currentUser = &u
		user, err := s.store.CurrentUser(s.ctx)
		s.Require().NoError(err)
		s.Equal("Alice", user.Name)
		s.Equal([]string{"tok-2"}, s.api.tokens)
		s.Equal("Alice", s.store.User().Name)
	})

	s.Run("failure clears the user but keeps the token", func() {
		s.api.currentUser = nil
		s.api.currentErr = dErrors.New(dErrors.CodeUnauthorized, "jwt expired")
		_, err := s.store.CurrentUser(s.ctx)
		s.Require().Error(err)
		s.Nil(s.store.User())
		s.Equal("tok-2", s.store.Token())
		s.Equal("jwt expired", s.store.State().Error)
	})
}

func (s *StoreSuite) TestLogoutClearsEverything() {
	s.api.loginRes = &api.LoginResult{User: alice(), AccessToken: "tok-1"}
	_, err := s.store.Login(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Logout(s.ctx))

	st := s.store.State()
	s.Empty(st.Token)
	s.Nil(st.User)
	_, err = s.tokens.Load(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Run("logout when already logged out", func() {
		s.NoError(s.store.Logout(s.ctx))
	})
}

type failingDelete struct{ *tokenstore.Memory }

func (failingDelete) Delete(context.Context) error { return errors.New("disk gone") }

func (s *StoreSuite) TestLogoutResetsMemoryEvenWhenStorageFails() {
	store := New(s.api, failingDelete{tokenstore.NewMemory()})
	s.api.loginRes = &api.LoginResult{User: alice(), AccessToken: "tok-1"}
	_, err := store.Login(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	err = store.Logout(s.ctx)
	s.True(dErrors.IsNetwork(err))
	s.Empty(store.Token())
	s.Nil(store.User())
}

func (s *StoreSuite) TestRegister() {
	s.Run("sends the form and does not log in", func() {
		reg, err := s.store.Register(s.ctx, RegisterForm{
			Name: "Bob", Username: "bob", Email: "bob@example.com", Password: "pw",
			ProfileImage: bytes.NewBufferString("png"), Filename: "bob.png",
		})
		s.Require().NoError(err)
		s.Equal("User registered", reg.Message)
		s.Empty(s.store.Token())

		for _, field := range []string{"name", "username", "email", "password", "profileImage"} {
			s.True(s.api.regForm.Has(field), field)
		}
		email, _ := s.api.regForm.Value("email")
		s.Equal("bob@example.com", email)
	})

	s.Run("field errors are recorded", func() {
		s.api.regErr = dErrors.Validation("validation failed", map[string]string{"email": "Email already taken"})
		_, err := s.store.Register(s.ctx, RegisterForm{Email: "bob@example.com"})
		s.Require().Error(err)
		s.False(s.api.regForm.Has("profileImage"))
		s.Equal(map[string]string{"email": "Email already taken"}, s.store.State().FieldErrors)
		s.Empty(s.store.State().Error)
	})
}

func (s *StoreSuite) TestSubscribersSeeChanges() {
	var tokens []string
	unsubscribe := s.store.Subscribe(func(st State) { tokens = append(tokens, st.Token) })
	defer unsubscribe()

	s.api.loginRes = &api.LoginResult{User: alice(), AccessToken: "tok-1"}
	_, err := s.store.Login(s.ctx, "alice", "secret")
	s.Require().NoError(err)

	s.Equal([]string{"", "tok-1"}, tokens)
}

func (s *StoreSuite) TestTokenExpiry() {
	_, ok := s.store.TokenExpiry()
	s.False(ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("unknown-to-client"))
	s.Require().NoError(err)
	s.Require().NoError(s.tokens.Save(s.ctx, token))
	s.Require().NoError(s.store.Restore(s.ctx))

	got, ok := s.store.TokenExpiry()
	s.True(ok)
	s.True(exp.Equal(got))

	_, ok = Expiry("not-a-jwt")
	s.False(ok)
}
