package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"taskportal/internal/platform/logger"
	"taskportal/internal/platform/metrics"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/sentinel"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
)

// Handler receives the first argument of an inbound event.
type Handler func(data json.RawMessage)

// Channel is the part of a connection a room needs: emitting events and
// listening for them.
type Channel interface {
	Emit(event string, data any) error
	On(event string, h Handler) (off func())
}

// Conn is an authenticated client connection. Handlers run on the read
// goroutine, in registration order, and must not block.
type Conn struct {
	ws           *websocket.Conn
	sid          string
	pingInterval time.Duration
	pingTimeout  time.Duration

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string][]registration
	nextID   uint64

	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool
	err       error

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type registration struct {
	id uint64
	h  Handler
}

type dialConfig struct {
	dialer           *websocket.Dialer
	handshakeTimeout time.Duration
	header           http.Header
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

// Option configures Dial and NewHub.
type Option func(*dialConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *dialConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *dialConfig) {
		c.metrics = m
	}
}

// WithDialer replaces the WebSocket dialer, for proxies or custom TLS.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *dialConfig) {
		c.dialer = d
	}
}

// WithHandshakeTimeout bounds the open and connect handshakes.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *dialConfig) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithHeader adds HTTP headers to the upgrade request.
func WithHeader(h http.Header) Option {
	return func(c *dialConfig) {
		c.header = h
	}
}

func newDialConfig(opts []Option) dialConfig {
	cfg := dialConfig{
		dialer:           websocket.DefaultDialer,
		handshakeTimeout: defaultHandshakeTimeout,
		logger:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Dial opens the transport at serverURL and authenticates with token in the
// Socket.IO connect packet. A CONNECT_ERROR reply is returned as an
// unauthorized error carrying the server's message.
func Dial(ctx context.Context, serverURL, token string, opts ...Option) (*Conn, error) {
	cfg := newDialConfig(opts)
	endpoint, err := EndpointURL(serverURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid socket url")
	}

	ws, _, err := cfg.dialer.DialContext(ctx, endpoint, cfg.header)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not reach the chat server")
	}

	c := &Conn{
		ws:       ws,
		handlers: map[string][]registration{},
		done:     make(chan struct{}),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	err = c.handshake(token, cfg.handshakeTimeout)
	stop()
	if err != nil {
		ws.Close()
		if ctx.Err() != nil && !dErrors.IsAuth(err) {
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "chat handshake cancelled")
		}
		return nil, err
	}

	c.metrics.ConnectionOpened()
	c.logger.Info("realtime connected", "sid", c.sid)
	go c.readLoop()
	return c, nil
}

func (c *Conn) handshake(token string, timeout time.Duration) error {
	if err := c.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "chat handshake failed")
	}

	f, err := c.readFrame()
	if err != nil {
		return err
	}
	if f.Engine != EngineOpen {
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("unexpected first frame %q", f.Engine))
	}
	var open OpenPayload
	if err := json.Unmarshal(f.Data, &open); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "invalid open handshake")
	}
	c.pingInterval = time.Duration(open.PingInterval) * time.Millisecond
	c.pingTimeout = time.Duration(open.PingTimeout) * time.Millisecond

	connect, err := NewPacket(PacketConnect, map[string]string{"token": token})
	if err != nil {
		return err
	}
	if err := c.write(connect); err != nil {
		return err
	}

	for {
		f, err := c.readFrame()
		if err != nil {
			return err
		}
		switch {
		case f.Engine == EnginePing:
			if err := c.write(Frame{Engine: EnginePong, Data: f.Data}); err != nil {
				return err
			}
		case f.Engine == EngineClose:
			return dErrors.New(dErrors.CodeUnavailable, "chat server closed the connection")
		case f.Engine != EngineMessage:
		case f.Packet.Type == PacketConnect:
			var ack struct {
				SID string `json:"sid"`
			}
			if len(f.Packet.Data) > 0 {
				_ = json.Unmarshal(f.Packet.Data, &ack)
			}
			c.sid = ack.SID
			return c.ws.SetReadDeadline(c.nextReadDeadline())
		case f.Packet.Type == PacketConnectError:
			var ce ConnectError
			_ = json.Unmarshal(f.Packet.Data, &ce)
			if ce.Message == "" {
				ce.Message = "connection refused"
			}
			return dErrors.New(dErrors.CodeUnauthorized, ce.Message)
		}
	}
}

func (c *Conn) readFrame() (Frame, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "chat connection lost")
	}
	f, err := Decode(raw)
	if err != nil {
		return Frame{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed frame from chat server")
	}
	return f, nil
}

// nextReadDeadline allows one ping interval plus the timeout before the server
// counts as gone. Zero disables the deadline when the server sent no timings.
func (c *Conn) nextReadDeadline() time.Time {
	if c.pingInterval <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.pingInterval + c.pingTimeout)
}

func (c *Conn) readLoop() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		_ = c.ws.SetReadDeadline(c.nextReadDeadline())

		f, err := Decode(raw)
		if err != nil {
			c.logger.Warn("dropping malformed realtime frame", "error", err)
			continue
		}
		switch f.Engine {
		case EnginePing:
			if err := c.write(Frame{Engine: EnginePong, Data: f.Data}); err != nil {
				c.shutdown(err)
				return
			}
		case EngineClose:
			c.shutdown(sentinel.ErrClosed)
			return
		case EngineMessage:
			switch f.Packet.Type {
			case PacketEvent:
				c.dispatch(f.Packet.Event, f.Packet.Data)
			case PacketDisconnect:
				c.shutdown(sentinel.ErrClosed)
				return
			}
		}
	}
}

func (c *Conn) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	regs := append([]registration(nil), c.handlers[event]...)
	c.mu.Unlock()
	for _, r := range regs {
		r.h(data)
	}
}

func (c *Conn) write(f Frame) error {
	raw, err := Encode(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "chat connection lost")
	}
	return nil
}

// Emit sends a named event with data as its single argument.
func (c *Conn) Emit(event string, data any) error {
	if !c.Open() {
		return dErrors.Wrap(sentinel.ErrClosed, dErrors.CodeUnavailable, "chat connection closed")
	}
	f, err := NewEvent(event, data)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid event payload")
	}
	return c.write(f)
}

// On registers h for event and returns a function that removes it.
func (c *Conn) On(event string, h Handler) (off func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[event] = append(c.handlers[event], registration{id: id, h: h})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			regs := c.handlers[event]
			for i, r := range regs {
				if r.id == id {
					c.handlers[event] = append(regs[:i:i], regs[i+1:]...)
					break
				}
			}
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
		})
	}
}

// Listeners reports how many handlers are registered for event.
func (c *Conn) Listeners(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

// SID is the Socket.IO session id assigned by the server.
func (c *Conn) SID() string {
	return c.sid
}

// Open reports whether the connection is usable.
func (c *Conn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the connection ends for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended; nil while open or after Close.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close disconnects from the namespace and closes the transport. It is safe
// to call more than once.
func (c *Conn) Close() error {
	if !c.Open() {
		return nil
	}
	c.closing.Store(true)
	if f, err := NewPacket(PacketDisconnect, nil); err == nil {
		_ = c.write(f)
	}
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		if err != nil && !errors.Is(err, sentinel.ErrClosed) && !c.closing.Load() {
			c.err = dErrors.Wrap(err, dErrors.CodeUnavailable, "chat connection lost")
			c.logger.Warn("realtime connection lost", "sid", c.sid, "error", err)
		} else {
			c.logger.Info("realtime disconnected", "sid", c.sid)
		}
		close(c.done)
		c.ws.Close()
		c.metrics.ConnectionClosed()
	})
}
