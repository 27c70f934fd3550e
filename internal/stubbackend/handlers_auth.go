package stubbackend

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/httputil"
	"taskportal/pkg/requestcontext"
)

const maxUploadBytes = 10 << 20

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

type usersResponse struct {
	Users []domain.User `json:"users"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "Expected a multipart form"))
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if err := validateNewUser(name, username, email, password); err != nil {
		httputil.WriteError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "hash password", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "hash password"))
		return
	}
	image, err := s.saveFormFile(r, "profileImage")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := s.db.addUser(domain.User{
		Name:         name,
		Username:     username,
		Email:        email,
		Role:         domain.RoleEmployee,
		ProfileImage: image,
	}, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, user, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Identifier) == "" {
		fields["identifier"] = "Email or username is required"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		httputil.WriteError(w, dErrors.Validation("Validation failed", fields))
		return
	}

	rec, ok := s.db.findLogin(strings.TrimSpace(req.Identifier))
	if !ok || bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(req.Password)) != nil {
		s.logger.WarnContext(ctx, "login rejected", "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials"))
		return
	}
	token, err := s.jwt.GenerateAccessToken(rec.user, s.cfg.TokenTTL)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sign token"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{User: rec.user, AccessToken: token}, "Login successful")
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.db.user(requestcontext.UserID(r.Context()))
	if !ok {
		// The token outlived its account.
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "User no longer exists"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user, "")
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, usersResponse{Users: s.db.listUsers()}, "")
}

// saveFormFile stores the named upload, if the form carries one.
func (s *Server) saveFormFile(r *http.Request, field string) (*domain.Asset, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Unreadable "+field)
	}
	defer file.Close()
	body := make([]byte, header.Size)
	if _, err := io.ReadFull(file, body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Unreadable "+field)
	}
	return s.db.saveUpload(path.Base(header.Filename), header.Header.Get("Content-Type"), body), nil
}
