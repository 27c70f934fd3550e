package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"taskportal/internal/platform/logger"
	"taskportal/pkg/domain"
	"taskportal/pkg/requestcontext"
	"taskportal/pkg/testutil"
)

type stubValidator map[string]*Claims

func (v stubValidator) ValidateToken(token string) (*Claims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type AuthSuite struct {
	suite.Suite
	logger  *slog.Logger
	handler http.Handler
	seen    struct {
		user domain.UserID
		role domain.Role
		id   string
	}
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.logger = logger.Discard()
	validator := stubValidator{
		"admin-token": {UserID: "u-admin", Role: domain.RoleAdmin},
		"emp-token":   {UserID: "u-emp", Role: domain.RoleEmployee},
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.seen.user = requestcontext.UserID(r.Context())
		s.seen.role = requestcontext.Role(r.Context())
		s.seen.id = requestcontext.RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	s.handler = RequestID(RequireAuth(validator, s.logger)(RequireAdmin(s.logger)(inner)))
}

func (s *AuthSuite) TestMissingToken() {
	rr := testutil.DoRequest(s.handler, testutil.NewRequest(s.T(), http.MethodGet, "/project"))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertJSONContains(s.T(), rr, "message", "Unauthorized request")
}

func (s *AuthSuite) TestInvalidToken() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/project")
	req.Header.Set("Authorization", "Bearer forged")
	rr := testutil.DoRequest(s.handler, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *AuthSuite) TestEmployeeIsForbidden() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/project")
	req.Header.Set("Authorization", "Bearer emp-token")
	rr := testutil.DoRequest(s.handler, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertJSONContains(s.T(), rr, "success", false)
}

func (s *AuthSuite) TestAdminPassesWithContext() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/project")
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set(RequestIDHeader, "req-42")
	rr := testutil.DoRequest(s.handler, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal(domain.UserID("u-admin"), s.seen.user)
	s.Equal(domain.RoleAdmin, s.seen.role)
	s.Equal("req-42", s.seen.id)
	s.Equal("req-42", rr.Header().Get(RequestIDHeader))
}

func TestRequestIDIsMinted(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.RequestID(r.Context())
	}))
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rr.Header().Get(RequestIDHeader))
}

func TestRequireAdminReadsContextRole(t *testing.T) {
	discard := logger.Discard()
	h := RequireAdmin(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("administrator", func(t *testing.T) {
		req := testutil.WithAuth(testutil.NewRequest(t, http.MethodDelete, "/project/p1"), "u-1", domain.RoleAdmin)
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusNoContent)
	})

	t.Run("employee", func(t *testing.T) {
		req := testutil.WithAuth(testutil.NewRequest(t, http.MethodDelete, "/project/p1"), "u-2", domain.RoleEmployee)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
		testutil.AssertJSONHasKey(t, rr, "statusCode")
	})
}
