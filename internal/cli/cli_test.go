package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"taskportal/internal/platform/config"
	"taskportal/internal/portal"
	"taskportal/internal/stubbackend"
	"taskportal/pkg/domain"
)

// syncBuffer is written by the chat receive goroutine while tests read it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type CLISuite struct {
	suite.Suite
	stub  *stubbackend.Server
	cfg   config.Client
	alice domain.User
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	stub, err := stubbackend.New(config.Stub{JWTSecret: "cli-secret", TokenTTL: time.Hour}, stubbackend.WithBcryptCost(bcrypt.MinCost))
	s.Require().NoError(err)
	_, err = stub.AddUser(stubbackend.NewUser{Name: "Ada", Username: "ada", Email: "ada@example.com", Password: "secret1", Role: domain.RoleAdmin})
	s.Require().NoError(err)
	s.alice, err = stub.AddUser(stubbackend.NewUser{Name: "Alice", Username: "alice", Email: "alice@example.com", Password: "secret1"})
	s.Require().NoError(err)
	s.stub = stub

	srv := httptest.NewServer(stub.Handler())
	s.T().Cleanup(srv.Close)
	s.cfg = config.Client{
		APIBaseURL:  srv.URL + "/api/v1",
		SocketURL:   srv.URL,
		HTTPTimeout: 5 * time.Second,
		Token:       config.TokenStore{Kind: "file", Path: filepath.Join(s.T().TempDir(), "token")},
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (s *CLISuite) run(stdin string, args ...string) result {
	var out, errOut syncBuffer
	c := New(func(ctx context.Context) (*portal.App, error) {
		return portal.New(ctx, s.cfg)
	}, strings.NewReader(stdin), &out, &errOut)
	code := c.Run(context.Background(), args)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (s *CLISuite) mustRun(args ...string) string {
	res := s.run("", args...)
	s.Require().Equal(ExitSuccess, res.code, "portal %s\nstderr: %s", strings.Join(args, " "), res.stderr)
	return res.stdout
}

// idFrom extracts the id from a "Saved ... (<id>...)" line.
func idFrom(line string) string {
	_, rest, _ := strings.Cut(line, "(")
	id, _, _ := strings.Cut(rest, ")")
	id, _, _ = strings.Cut(id, ",")
	return strings.TrimSpace(id)
}

// =============================================================================
// Invocation
// =============================================================================

func (s *CLISuite) TestUsage() {
	res := s.run("")
	s.Equal(ExitSuccess, res.code)
	s.Contains(res.stdout, "projects")
	s.Contains(res.stdout, "chat")

	res = s.run("", "frobnicate")
	s.Equal(ExitUsage, res.code)
	s.Contains(res.stderr, `unknown command "frobnicate"`)

	res = s.run("", "login", "-u", "ada")
	s.Equal(ExitUsage, res.code)

	res = s.run("", "projects", "archive")
	s.Equal(ExitUsage, res.code)
}

func (s *CLISuite) TestRequiresLogin() {
	res := s.run("", "whoami")
	s.Equal(ExitLoginNeeded, res.code)
	s.Contains(res.stderr, "portal login")
}

func (s *CLISuite) TestBadCredentials() {
	res := s.run("", "login", "-u", "ada", "-p", "wrong-password")
	s.Equal(ExitFailure, res.code)
	s.Contains(res.stderr, "error:")
}

// =============================================================================
// Workflows
// =============================================================================

func (s *CLISuite) TestAdministratorWorkflow() {
	s.Contains(s.mustRun("login", "-u", "ada", "-p", "secret1"), "Signed in as Ada (admin)")
	s.Contains(s.mustRun("whoami"), "ada@example.com")

	created := s.mustRun("projects", "create", "-name", "Apollo", "-deadline", "2025-10-30", "-members", string(s.alice.ID))
	s.Contains(created, "Saved project Apollo")
	projectID := idFrom(created)
	s.Require().NotEmpty(projectID)

	list := s.mustRun("projects", "list")
	s.Contains(list, "Apollo")
	s.Contains(list, "2025-10-30")

	res := s.run("", "projects", "create", "-name", "Broken", "-deadline", "30/10/2025")
	s.Equal(ExitFailure, res.code)
	s.Contains(res.stderr, "deadline:")

	s.Contains(s.mustRun("projects", "update", projectID, "-description", "Moon"), "Saved project Apollo")
	s.Contains(s.mustRun("projects", "show", projectID), "Moon")
	s.Contains(s.mustRun("projects", "show", projectID), "Alice")

	task := s.mustRun("tasks", "create", "-project", projectID, "-title", "Fuel", "-assignee", string(s.alice.ID))
	s.Contains(task, "To-Do")
	taskID := idFrom(task)

	s.Contains(s.mustRun("tasks", "update", taskID, "-project", projectID, "-status", "In Progress"), "In Progress")
	tasks := s.mustRun("tasks", "list", "-project", projectID)
	s.Contains(tasks, "Fuel")
	s.Contains(tasks, "Alice")

	users := s.mustRun("users")
	s.Contains(users, "alice@example.com")

	report := s.mustRun("analytics")
	s.Contains(report, "Analytics")
	s.Contains(report, "Apollo")

	s.Contains(s.mustRun("tasks", "delete", taskID), "Deleted task")
	s.Contains(s.mustRun("projects", "delete", projectID), "Deleted project")

	s.Contains(s.mustRun("logout"), "Signed out")
	s.Equal(ExitLoginNeeded, s.run("", "whoami").code)
}

func (s *CLISuite) TestEmployeeWorkflow() {
	s.mustRun("login", "-u", "ada", "-p", "secret1")
	projectID := idFrom(s.mustRun("projects", "create", "-name", "Apollo", "-members", string(s.alice.ID)))
	s.mustRun("tasks", "create", "-project", projectID, "-title", "Fuel", "-assignee", string(s.alice.ID))
	s.mustRun("tasks", "create", "-project", projectID, "-title", "Paint")

	s.mustRun("login", "-u", "alice@example.com", "-p", "secret1")
	s.Contains(s.mustRun("projects"), "Apollo")

	mine := s.mustRun("tasks", "list", "-mine")
	s.Contains(mine, "Fuel")
	s.NotContains(mine, "Paint")

	report := s.mustRun("analytics")
	s.Contains(report, "My Tasks")
	s.Contains(report, "My projects")

	res := s.run("", "users")
	s.Equal(ExitFailure, res.code)

	s.Run("chat sends input lines and prints the room history", func() {
		s.mustRun("chat", "-project", projectID)
		res := s.run("hello team\n\n", "chat", "-project", projectID)
		s.Require().Equal(ExitSuccess, res.code, res.stderr)
		s.Eventually(func() bool {
			return strings.Contains(s.run("", "chat", "-project", projectID).stdout, "Alice: hello team")
		}, 3*time.Second, 50*time.Millisecond)
	})
}

func (s *CLISuite) TestRegister() {
	out := s.mustRun("register", "-name", "Carol", "-username", "carol", "-email", "carol@example.com", "-password", "secret1")
	s.Contains(out, "Carol")
	s.Contains(out, "portal login -u carol")

	res := s.run("", "register", "-name", "Carol", "-username", "carol", "-email", "bad", "-password", "1")
	s.Equal(ExitFailure, res.code)
	s.Contains(res.stderr, "password:")

	s.Contains(s.mustRun("login", "-u", "carol", "-p", "secret1"), "employee")
}
