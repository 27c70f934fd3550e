// Package chat implements the per-project chat room: a view-scoped state
// machine that loads history, joins the project room over the session's
// realtime connection and collects inbound messages until unmounted.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"taskportal/internal/platform/logger"
	"taskportal/internal/platform/metrics"
	"taskportal/internal/realtime"
	"taskportal/internal/state"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/sentinel"
)

// Event names understood by the chat server.
const (
	EventJoinProject    = "joinProject"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
)

// Phase is the lifecycle position of a room.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseJoined       Phase = "joined"
	PhaseLeft         Phase = "left"
)

// History loads the stored messages of a project.
type History interface {
	ListMessages(ctx context.Context, token string, projectID domain.ProjectID) ([]domain.Message, error)
}

// Connector hands out the session connection. realtime.Hub implements it.
type Connector interface {
	Acquire(ctx context.Context, token string) (realtime.Channel, error)
	Release(ch realtime.Channel)
}

type Session interface {
	Token() string
	User() *domain.User
}

// JoinRequest is the joinProject payload.
type JoinRequest struct {
	ProjectID domain.ProjectID `json:"projectId"`
}

// SendRequest is the sendMessage payload.
type SendRequest struct {
	ProjectID domain.ProjectID `json:"projectId"`
	SenderID  domain.UserID    `json:"senderId"`
	Content   string           `json:"content"`
}

// State is the room's local view. Messages are kept in arrival order.
type State struct {
	Phase    Phase
	Messages []domain.Message
	Error    string
}

func (s State) Clone() State {
	s.Messages = slices.Clone(s.Messages)
	return s
}

// Room is one mounted chat panel.
type Room struct {
	projectID domain.ProjectID
	hub       Connector
	history   History
	session   Session
	state     *state.Container[State]
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu  sync.Mutex
	ch  realtime.Channel
	off func()
}

type Option func(*Room)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Room) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Room) {
		r.metrics = m
	}
}

// WithHistory loads stored messages on mount.
func WithHistory(h History) Option {
	return func(r *Room) {
		r.history = h
	}
}

// NewRoom creates an unmounted room for projectID.
func NewRoom(projectID domain.ProjectID, hub Connector, session Session, opts ...Option) *Room {
	r := &Room{
		projectID: projectID,
		hub:       hub,
		session:   session,
		state:     state.New(State{Phase: PhaseDisconnected}),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Room) ProjectID() domain.ProjectID { return r.projectID }

func (r *Room) State() State { return r.state.Get() }

func (r *Room) Phase() Phase { return r.state.Get().Phase }

// Messages returns the messages received so far.
func (r *Room) Messages() []domain.Message { return r.state.Get().Messages }

// Subscribe calls fn after every change, including each inbound message.
func (r *Room) Subscribe(fn func(State)) (unsubscribe func()) {
	return r.state.Subscribe(fn)
}

// Mount loads history, acquires the session connection and joins the project
// room. Mounting a mounted room does nothing.
func (r *Room) Mount(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		return nil
	}
	token := r.session.Token()
	if token == "" {
		return dErrors.ErrLoginRequired
	}
	r.state.Update(func(st *State) {
		st.Phase = PhaseConnecting
		st.Messages = nil
		st.Error = ""
	})

	if r.history != nil {
		msgs, err := r.history.ListMessages(ctx, token, r.projectID)
		if err != nil {
			r.logger.WarnContext(ctx, "chat history unavailable", "project_id", r.projectID, "error", err)
		} else {
			r.state.Update(func(st *State) { st.Messages = msgs })
		}
	}

	ch, err := r.hub.Acquire(ctx, token)
	if err != nil {
		r.fail(err)
		return err
	}
	off := ch.On(EventReceiveMessage, r.receive)
	if err := ch.Emit(EventJoinProject, JoinRequest{ProjectID: r.projectID}); err != nil {
		off()
		r.hub.Release(ch)
		r.fail(err)
		return err
	}
	r.ch, r.off = ch, off
	r.state.Update(func(st *State) { st.Phase = PhaseJoined })
	r.logger.InfoContext(ctx, "joined chat room", "project_id", r.projectID)
	return nil
}

func (r *Room) fail(err error) {
	r.state.Update(func(st *State) {
		st.Phase = PhaseDisconnected
		st.Error = dErrors.Message(err)
	})
	r.logger.Warn("chat join failed", "project_id", r.projectID, "error", err)
}

// receive appends one inbound message while the room is mounted. Messages
// tagged for another room, which arrive when several rooms share the
// connection, are ignored.
func (r *Room) receive(data json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warn("dropping malformed chat message", "project_id", r.projectID, "error", err)
		return
	}
	if msg.ProjectID != "" && msg.ProjectID != r.projectID {
		return
	}
	var kept bool
	r.state.Update(func(st *State) {
		// A dispatch already in flight can still deliver after Unmount.
		if st.Phase != PhaseJoined && st.Phase != PhaseConnecting {
			return
		}
		st.Messages = append(st.Messages, msg)
		kept = true
	})
	if kept {
		r.metrics.IncrementChatReceived()
	}
}

// Send emits a message to the room. Blank content is ignored. The message is
// not appended locally; it appears when the server echoes it back.
func (r *Room) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()
	if ch == nil {
		return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeBadRequest, "chat room is not joined")
	}
	user := r.session.User()
	if user == nil {
		return dErrors.ErrLoginRequired
	}
	if err := ch.Emit(EventSendMessage, SendRequest{
		ProjectID: r.projectID,
		SenderID:  user.ID,
		Content:   content,
	}); err != nil {
		r.logger.WarnContext(ctx, "chat send failed", "project_id", r.projectID, "error", err)
		return err
	}
	r.metrics.IncrementChatSent()
	return nil
}

// Unmount detaches the listener and releases the connection, which stays open
// for other rooms. Local messages are discarded.
func (r *Room) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		return
	}
	r.off()
	r.hub.Release(r.ch)
	r.ch, r.off = nil, nil
	r.state.Update(func(st *State) {
		st.Phase = PhaseLeft
		st.Messages = nil
	})
	r.logger.Info("left chat room", "project_id", r.projectID)
}
