// Package stubbackend is an in-memory stand-in for the portal backend. It
// serves the REST envelope API and the project chat socket so the client can
// be exercised end to end without the real service.
package stubbackend

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	jwttoken "taskportal/internal/jwt_token"
	"taskportal/internal/platform/config"
	"taskportal/internal/platform/logger"
	"taskportal/internal/platform/middleware"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/email"
	"taskportal/pkg/platform/httputil"
)

const tokenIssuer = "taskportal-stub"

// Server is the fake backend. All state lives in memory and is lost when the
// process exits.
type Server struct {
	cfg        config.Stub
	logger     *slog.Logger
	db         *memoryDB
	jwt        *jwttoken.JWTService
	validator  middleware.TokenValidator
	rooms      *rooms
	registry   *prometheus.Registry
	bcryptCost int
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBcryptCost lowers the password hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

// WithClock fixes the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server and seeds the administrator named in cfg, if any.
func New(cfg config.Stub, opts ...Option) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	s := &Server{
		cfg:        cfg,
		logger:     logger.Discard(),
		db:         newMemoryDB(),
		jwt:        jwttoken.NewJWTService(cfg.JWTSecret, tokenIssuer),
		registry:   prometheus.NewRegistry(),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = jwttoken.NewJWTServiceAdapter(s.jwt)
	s.rooms = newRooms(s.registry)

	if cfg.SeedAdminEmail != "" {
		if _, err := s.AddUser(NewUser{
			Name:     email.DeriveName(cfg.SeedAdminEmail),
			Username: email.LocalPart(cfg.SeedAdminEmail),
			Email:    cfg.SeedAdminEmail,
			Password: cfg.SeedAdminPassword,
			Role:     domain.RoleAdmin,
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "seed administrator")
		}
		s.logger.Info("seeded administrator", "email", cfg.SeedAdminEmail)
	}
	return s, nil
}

// NewUser describes an account created outside the register endpoint.
type NewUser struct {
	Name     string
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// AddUser creates an account directly, bypassing registration. It is how
// administrators come to exist.
func (s *Server) AddUser(in NewUser) (domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateNewUser(in.Name, in.Username, in.Email, in.Password); err != nil {
		return domain.User{}, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleEmployee
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	return s.db.addUser(domain.User{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Role:     role,
	}, hash)
}

// IssueToken signs an access token for an existing user.
func (s *Server) IssueToken(id domain.UserID) (string, error) {
	u, ok := s.db.user(id)
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "User not found")
	}
	return s.jwt.GenerateAccessToken(u, s.cfg.TokenTTL)
}

// Handler returns the complete HTTP surface: the REST API under /api/v1, the
// socket endpoint, uploaded files, health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/uploads/*", s.handleUpload)
	r.HandleFunc("/socket.io/", s.handleSocket)

	requireAuth := middleware.RequireAuth(s.validator, s.logger)
	requireAdmin := middleware.RequireAdmin(s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/user/current-user", s.handleCurrentUser)
			r.With(requireAdmin).Get("/user", s.handleListUsers)

			r.With(requireAdmin).Get("/project", s.handleListAllProjects)
			r.With(requireAdmin).Post("/project", s.handleCreateProject)
			r.Get("/project/user", s.handleListMemberProjects)
			r.Get("/project/{id}", s.handleGetProject)
			r.With(requireAdmin).Patch("/project/{id}", s.handleUpdateProject)
			r.With(requireAdmin).Delete("/project/{id}", s.handleDeleteProject)

			r.Get("/task/{projectId}", s.handleListTasks)
			r.With(requireAdmin).Post("/task", s.handleCreateTask)
			r.Patch("/task/{id}", s.handleUpdateTask)
			r.With(requireAdmin).Delete("/task/{id}", s.handleDeleteTask)

			r.Get("/message/{projectId}", s.handleListMessages)
		})
	})
	return r
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.db.upload(chi.URLParam(r, "*"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "File not found"))
		return
	}
	if up.contentType != "" {
		w.Header().Set("Content-Type", up.contentType)
	}
	_, _ = w.Write(up.body)
}

func validateNewUser(name, username, address, password string) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "Username is required"
	}
	if !email.Valid(address) {
		fields["email"] = "A valid email is required"
	}
	if len(password) < minPasswordLength {
		fields["password"] = "Password must be at least 6 characters"
	}
	if len(fields) > 0 {
		return dErrors.Validation("Validation failed", fields)
	}
	return nil
}

const minPasswordLength = 6
