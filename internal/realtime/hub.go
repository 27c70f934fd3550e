package realtime

import (
	"context"
	"log/slog"
	"sync"

	"taskportal/internal/platform/logger"
	dErrors "taskportal/pkg/domain-errors"
)

// Hub owns the one connection of a session. Rooms acquire it on mount and
// release it on unmount; the connection outlives the rooms and is closed only
// by Close, typically at logout.
type Hub struct {
	serverURL string
	opts      []Option
	dial      func(ctx context.Context, token string) (*Conn, error)
	logger    *slog.Logger

	mu    sync.Mutex
	conn  *Conn
	token string
	refs  int
}

// NewHub creates a hub for the realtime server at serverURL. No connection is
// made until the first Acquire.
func NewHub(serverURL string, opts ...Option) *Hub {
	cfg := newDialConfig(opts)
	h := &Hub{
		serverURL: serverURL,
		opts:      opts,
		logger:    cfg.logger,
	}
	if h.logger == nil {
		h.logger = logger.Discard()
	}
	h.dial = func(ctx context.Context, token string) (*Conn, error) {
		return Dial(ctx, h.serverURL, token, h.opts...)
	}
	return h
}

// Acquire returns the session connection, dialling only when none is open or
// the token changed. Concurrent callers share one dial.
func (h *Hub) Acquire(ctx context.Context, token string) (Channel, error) {
	if token == "" {
		return nil, dErrors.ErrLoginRequired
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn != nil && h.conn.Open() && h.token == token {
		h.refs++
		return h.conn, nil
	}
	if h.conn != nil {
		h.logger.InfoContext(ctx, "replacing realtime connection", "open", h.conn.Open(), "token_changed", h.token != token)
		_ = h.conn.Close()
		h.conn, h.token, h.refs = nil, "", 0
	}

	conn, err := h.dial(ctx, token)
	if err != nil {
		return nil, err
	}
	h.conn, h.token, h.refs = conn, token, 1
	return conn, nil
}

// Release returns a reference taken by Acquire. The connection stays open.
func (h *Hub) Release(ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := ch.(*Conn); ok && conn == h.conn && h.refs > 0 {
		h.refs--
	}
}

// Refs reports how many rooms hold the current connection.
func (h *Hub) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// Connected reports whether an open connection is held.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil && h.conn.Open()
}

// Close tears the connection down. The hub can be reused afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	conn := h.conn
	h.conn, h.token, h.refs = nil, "", 0
	h.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
