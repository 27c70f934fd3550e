// Package portal wires the client stores into one application per session and
// derives the role dashboards from their state.
package portal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"taskportal/internal/api"
	"taskportal/internal/chat"
	"taskportal/internal/platform/config"
	"taskportal/internal/platform/logger"
	"taskportal/internal/platform/metrics"
	"taskportal/internal/projects"
	"taskportal/internal/realtime"
	"taskportal/internal/session"
	"taskportal/internal/tasks"
	"taskportal/internal/tokenstore"
	"taskportal/internal/users"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

// App is the composition root of the client. Every store shares the session
// and the API client; the hub holds the session's single realtime connection.
type App struct {
	API      *api.Client
	Session  *session.Store
	Projects *projects.Store
	Tasks    *tasks.Store
	Users    *users.Store
	Hub      *realtime.Hub

	logger      *slog.Logger
	metrics     *metrics.Metrics
	closeTokens func() error
}

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tokens     tokenstore.Store
	apiOpts    []api.Option
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the client metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTokenStore overrides the token store selected by the configuration.
func WithTokenStore(store tokenstore.Store) Option {
	return func(o *options) {
		o.tokens = store
	}
}

// WithAPIOptions passes extra options to the REST client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(o *options) {
		o.apiOpts = append(o.apiOpts, opts...)
	}
}

// New builds the stores for cfg. It does not touch the network; call
// Session.Restore or EnsureSession to pick up a persisted login.
func New(ctx context.Context, cfg config.Client, opts ...Option) (*App, error) {
	o := options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	m := metrics.New(o.registerer)

	client, err := api.New(cfg.APIBaseURL, append([]api.Option{
		api.WithLogger(o.logger),
		api.WithMetrics(m),
		api.WithTimeout(cfg.HTTPTimeout),
	}, o.apiOpts...)...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "configure api client")
	}

	closeTokens := func() error { return nil }
	tokens := o.tokens
	if tokens == nil {
		tokens, closeTokens, err = tokenstore.Open(ctx, cfg)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "open token store")
		}
	}

	sess := session.New(client, tokens, session.WithLogger(o.logger))

	projectOpts := []projects.Option{projects.WithLogger(o.logger)}
	taskOpts := []tasks.Option{tasks.WithLogger(o.logger)}
	if cfg.FenceFetches {
		projectOpts = append(projectOpts, projects.WithRequestFencing())
		taskOpts = append(taskOpts, tasks.WithRequestFencing())
	}
	taskStore, err := tasks.New(client, sess, taskOpts...)
	if err != nil {
		_ = closeTokens()
		return nil, err
	}

	return &App{
		API:         client,
		Session:     sess,
		Projects:    projects.New(client, sess, projectOpts...),
		Tasks:       taskStore,
		Users:       users.New(client, sess, users.WithLogger(o.logger)),
		Hub:         realtime.NewHub(cfg.SocketURL, realtime.WithLogger(o.logger), realtime.WithMetrics(m)),
		logger:      o.logger,
		metrics:     m,
		closeTokens: closeTokens,
	}, nil
}

// EnsureSession makes sure a user is signed in. Without a token it returns
// dErrors.ErrLoginRequired; with a token but no loaded user it fetches the
// current user.
func (a *App) EnsureSession(ctx context.Context) (*domain.User, error) {
	if a.Session.Token() == "" {
		if err := a.Session.Restore(ctx); err != nil {
			return nil, err
		}
	}
	if a.Session.Token() == "" {
		return nil, dErrors.ErrLoginRequired
	}
	if u := a.Session.User(); u != nil {
		return u, nil
	}
	return a.Session.CurrentUser(ctx)
}

// Logout closes the realtime connection and clears the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.Hub.Close(); err != nil {
		a.logger.WarnContext(ctx, "closing realtime connection", "error", err)
	}
	return a.Session.Logout(ctx)
}

// Room creates a chat room for projectID bound to this session.
func (a *App) Room(projectID domain.ProjectID) *chat.Room {
	return chat.NewRoom(projectID, a.Hub, a.Session,
		chat.WithHistory(a.API),
		chat.WithLogger(a.logger),
		chat.WithMetrics(a.metrics),
	)
}

// LoadWorkspace fetches the caller's projects and then the tasks of each of
// them, which is what both dashboards start from.
func (a *App) LoadWorkspace(ctx context.Context) error {
	if err := a.Projects.FetchAll(ctx); err != nil {
		return err
	}
	loaded := a.Projects.State().Projects
	ids := make([]domain.ProjectID, 0, len(loaded))
	for _, p := range loaded {
		ids = append(ids, p.ID)
	}
	return a.Tasks.FetchForProjects(ctx, ids)
}

// Close releases the realtime connection and the token store.
func (a *App) Close() error {
	return errors.Join(a.Hub.Close(), a.closeTokens())
}
