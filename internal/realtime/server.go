package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrBadTransport is returned by Accept for requests that do not ask for the
// Engine.IO v4 WebSocket transport.
var ErrBadTransport = errors.New("only EIO=4 websocket transport is supported")

// AcceptOptions configures the server side of a connection.
type AcceptOptions struct {
	PingInterval     time.Duration
	PingTimeout      time.Duration
	HandshakeTimeout time.Duration
	// Authenticate inspects the connect payload and returns the principal the
	// socket acts for. An error is sent back as CONNECT_ERROR with its text.
	Authenticate func(auth json.RawMessage) (string, error)
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
}

func (o AcceptOptions) withDefaults() AcceptOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 20 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	return o
}

// ServerConn is the server end of one authenticated socket.
type ServerConn struct {
	ws        *websocket.Conn
	id        string
	principal string
	opts      AcceptOptions

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Accept upgrades r, runs the open and connect handshakes and starts the
// heartbeat. On a rejected connect the socket is closed and the
// authentication error returned.
func Accept(w http.ResponseWriter, r *http.Request, opts AcceptOptions) (*ServerConn, error) {
	opts = opts.withDefaults()
	q := r.URL.Query()
	if q.Get("EIO") != "4" || q.Get("transport") != "websocket" {
		http.Error(w, ErrBadTransport.Error(), http.StatusBadRequest)
		return nil, ErrBadTransport
	}

	upgrader := websocket.Upgrader{CheckOrigin: opts.CheckOrigin}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	c := &ServerConn{
		ws:   ws,
		id:   uuid.NewString(),
		opts: opts,
		done: make(chan struct{}),
	}
	if err := c.handshake(); err != nil {
		c.shutdown()
		return nil, err
	}
	go c.heartbeat()
	return c, nil
}

func (c *ServerConn) handshake() error {
	open, err := json.Marshal(OpenPayload{
		SID:          uuid.NewString(),
		Upgrades:     []string{},
		PingInterval: int(c.opts.PingInterval / time.Millisecond),
		PingTimeout:  int(c.opts.PingTimeout / time.Millisecond),
		MaxPayload:   1_000_000,
	})
	if err != nil {
		return err
	}
	if err := c.write(Frame{Engine: EngineOpen, Data: open}); err != nil {
		return err
	}

	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read connect: %w", err)
		}
		f, err := Decode(raw)
		if err != nil {
			return err
		}
		if f.Engine != EngineMessage || f.Packet.Type != PacketConnect {
			continue
		}
		principal, authErr := c.authenticate(f.Packet.Data)
		if authErr != nil {
			reject, _ := NewPacket(PacketConnectError, ConnectError{Message: authErr.Error()})
			_ = c.write(reject)
			return authErr
		}
		c.principal = principal
		ack, err := NewPacket(PacketConnect, map[string]string{"sid": c.id})
		if err != nil {
			return err
		}
		return c.write(ack)
	}
}

func (c *ServerConn) authenticate(auth json.RawMessage) (string, error) {
	if c.opts.Authenticate == nil {
		return "", nil
	}
	return c.opts.Authenticate(auth)
}

func (c *ServerConn) heartbeat() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(Frame{Engine: EnginePing}); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// Serve reads until the client disconnects, calling onEvent for every event.
// It returns nil on a clean disconnect.
func (c *ServerConn) Serve(onEvent func(event string, data json.RawMessage)) error {
	defer c.shutdown()
	for {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PingInterval + c.opts.PingTimeout))
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return err
		}
		f, err := Decode(raw)
		if err != nil {
			continue
		}
		switch f.Engine {
		case EnginePing:
			_ = c.write(Frame{Engine: EnginePong, Data: f.Data})
		case EngineClose:
			return nil
		case EngineMessage:
			switch f.Packet.Type {
			case PacketDisconnect:
				return nil
			case PacketEvent:
				onEvent(f.Packet.Event, f.Packet.Data)
			}
		}
	}
}

// Emit sends a named event to the client.
func (c *ServerConn) Emit(event string, data any) error {
	f, err := NewEvent(event, data)
	if err != nil {
		return err
	}
	return c.write(f)
}

func (c *ServerConn) write(f Frame) error {
	raw, err := Encode(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// ID is the Socket.IO socket id.
func (c *ServerConn) ID() string { return c.id }

// Principal is what Authenticate returned for this socket.
func (c *ServerConn) Principal() string { return c.principal }

// Done is closed once the socket is shut down.
func (c *ServerConn) Done() <-chan struct{} { return c.done }

// Close ends the socket from the server side.
func (c *ServerConn) Close() error {
	if f, err := NewPacket(PacketDisconnect, nil); err == nil {
		_ = c.write(f)
	}
	c.shutdown()
	return nil
}

func (c *ServerConn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}
