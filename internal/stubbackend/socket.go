package stubbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskportal/internal/chat"
	"taskportal/internal/realtime"
	"taskportal/pkg/domain"
	"taskportal/pkg/requestcontext"
)

var errSocketAuth = errors.New("authentication error")

// rooms tracks which sockets joined which project room.
type rooms struct {
	mu      sync.Mutex
	members map[domain.ProjectID]map[*realtime.ServerConn]struct{}

	connections prometheus.Gauge
	messages    prometheus.Counter
}

func newRooms(reg prometheus.Registerer) *rooms {
	f := promauto.With(reg)
	return &rooms{
		members: map[domain.ProjectID]map[*realtime.ServerConn]struct{}{},
		connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskportal_stub_socket_connections",
			Help: "Open chat sockets on the stub backend",
		}),
		messages: f.NewCounter(prometheus.CounterOpts{
			Name: "taskportal_stub_chat_messages_total",
			Help: "Chat messages stored and broadcast by the stub backend",
		}),
	}
}

func (rs *rooms) join(id domain.ProjectID, c *realtime.ServerConn) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.members[id] == nil {
		rs.members[id] = map[*realtime.ServerConn]struct{}{}
	}
	rs.members[id][c] = struct{}{}
}

func (rs *rooms) joined(id domain.ProjectID, c *realtime.ServerConn) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.members[id][c]
	return ok
}

func (rs *rooms) leaveAll(c *realtime.ServerConn) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for id, set := range rs.members {
		delete(set, c)
		if len(set) == 0 {
			delete(rs.members, id)
		}
	}
}

func (rs *rooms) snapshot(id domain.ProjectID) []*realtime.ServerConn {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*realtime.ServerConn, 0, len(rs.members[id]))
	for c := range rs.members[id] {
		out = append(out, c)
	}
	return out
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	conn, err := realtime.Accept(w, r, realtime.AcceptOptions{
		PingInterval: s.cfg.PingInterval,
		Authenticate: s.authenticateSocket,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "socket rejected", "error", err, "request_id", requestID)
		return
	}
	s.rooms.connections.Inc()
	defer s.rooms.connections.Dec()
	defer s.rooms.leaveAll(conn)

	userID := domain.UserID(conn.Principal())
	s.logger.InfoContext(ctx, "socket connected", "socket_id", conn.ID(), "user_id", userID)
	err = conn.Serve(func(event string, data json.RawMessage) {
		s.onSocketEvent(conn, userID, event, data)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "socket dropped", "socket_id", conn.ID(), "error", err)
		return
	}
	s.logger.InfoContext(ctx, "socket disconnected", "socket_id", conn.ID())
}

// authenticateSocket reads the bearer token from the connect payload.
func (s *Server) authenticateSocket(auth json.RawMessage) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	if len(auth) == 0 || json.Unmarshal(auth, &payload) != nil || payload.Token == "" {
		return "", errSocketAuth
	}
	claims, err := s.validator.ValidateToken(payload.Token)
	if err != nil {
		return "", errSocketAuth
	}
	if _, ok := s.db.user(claims.UserID); !ok {
		return "", errSocketAuth
	}
	return string(claims.UserID), nil
}

func (s *Server) onSocketEvent(conn *realtime.ServerConn, userID domain.UserID, event string, data json.RawMessage) {
	switch event {
	case chat.EventJoinProject:
		var req chat.JoinRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ProjectID == "" {
			s.logger.Warn("malformed join", "socket_id", conn.ID())
			return
		}
		user, ok := s.db.user(userID)
		if !ok {
			return
		}
		if _, err := s.db.project(req.ProjectID, userID, user.Role); err != nil {
			s.logger.Warn("join refused", "socket_id", conn.ID(), "project_id", req.ProjectID, "error", err)
			return
		}
		s.rooms.join(req.ProjectID, conn)
		s.logger.Debug("joined room", "socket_id", conn.ID(), "project_id", req.ProjectID)

	case chat.EventSendMessage:
		var req chat.SendRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Warn("malformed message", "socket_id", conn.ID())
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" || !s.rooms.joined(req.ProjectID, conn) {
			return
		}
		if req.SenderID != "" && req.SenderID != userID {
			s.logger.Warn("sender mismatch, using socket user", "socket_id", conn.ID(), "claimed", req.SenderID)
		}
		msg := s.db.addMessage(messageRecord{
			projectID: req.ProjectID,
			sender:    userID,
			content:   content,
			timestamp: s.now().UTC(),
		})
		s.rooms.messages.Inc()
		for _, member := range s.rooms.snapshot(req.ProjectID) {
			if err := member.Emit(chat.EventReceiveMessage, msg); err != nil {
				s.logger.Warn("broadcast failed", "socket_id", member.ID(), "error", err)
			}
		}

	default:
		s.logger.Debug("ignored socket event", "event", event)
	}
}

// RoomMembers reports how many sockets have joined the project's room.
func (s *Server) RoomMembers(id domain.ProjectID) int {
	return len(s.rooms.snapshot(id))
}
