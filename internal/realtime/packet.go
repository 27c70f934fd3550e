// Package realtime speaks the Socket.IO v5 protocol over a raw Engine.IO v4
// WebSocket transport. It covers what the portal chat needs: the open and
// connect handshakes, heartbeats, and named events with one JSON argument.
// Binary attachments and acknowledgements are not supported.
package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// EngineType is the Engine.IO packet type, the first byte of every frame.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is the Socket.IO packet type carried inside an Engine.IO message.
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
)

// Frame is one Engine.IO packet. Packet is set only for EngineMessage.
type Frame struct {
	Engine EngineType
	Packet *Packet
	// Data is the raw payload of non-message frames (the open handshake, probe
	// strings on ping and pong).
	Data []byte
}

// Packet is a Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string
	// AckID is -1 when the packet requests no acknowledgement.
	AckID int
	// Event is the event name of PacketEvent packets.
	Event string
	// Data is the connect payload, the connect error body or the first event
	// argument.
	Data json.RawMessage
}

// OpenPayload is the body of the Engine.IO open frame.
type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// ConnectError is the body of a CONNECT_ERROR packet.
type ConnectError struct {
	Message string `json:"message"`
}

// Encode renders f as a WebSocket text message.
func Encode(f Frame) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte(byte(f.Engine))
	if f.Engine != EngineMessage {
		b.Write(f.Data)
		return b.Bytes(), nil
	}
	p := f.Packet
	if p == nil {
		return nil, fmt.Errorf("message frame without packet")
	}
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.AckID >= 0 && p.Type == PacketEvent {
		b.WriteString(strconv.Itoa(p.AckID))
	}
	switch p.Type {
	case PacketEvent:
		args := []json.RawMessage{}
		name, err := json.Marshal(p.Event)
		if err != nil {
			return nil, err
		}
		args = append(args, name)
		if len(p.Data) > 0 {
			args = append(args, p.Data)
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", p.Event, err)
		}
		b.Write(raw)
	case PacketConnect, PacketConnectError, PacketAck:
		b.Write(p.Data)
	}
	return b.Bytes(), nil
}

// Decode parses one WebSocket text message.
func Decode(raw []byte) (Frame, error) {
	if len(raw) == 0 {
		return Frame{}, fmt.Errorf("empty frame")
	}
	f := Frame{Engine: EngineType(raw[0])}
	if f.Engine < EngineOpen || f.Engine > EngineNoop {
		return Frame{}, fmt.Errorf("unknown engine packet type %q", raw[0])
	}
	if f.Engine != EngineMessage {
		if len(raw) > 1 {
			f.Data = raw[1:]
		}
		return f, nil
	}
	p, err := decodePacket(string(raw[1:]))
	if err != nil {
		return Frame{}, err
	}
	f.Packet = p
	return f, nil
}

func decodePacket(s string) (*Packet, error) {
	if s == "" {
		return nil, fmt.Errorf("empty socket packet")
	}
	p := &Packet{Type: PacketType(s[0]), AckID: -1}
	if p.Type < PacketConnect || p.Type > PacketConnectError {
		return nil, fmt.Errorf("unsupported socket packet type %q", s[0])
	}
	s = s[1:]

	if strings.HasPrefix(s, "/") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			p.Namespace, s = s[:i], s[i+1:]
		} else {
			p.Namespace, s = s, ""
		}
	}

	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(s[:digits])
		if err != nil {
			return nil, fmt.Errorf("invalid ack id: %w", err)
		}
		p.AckID, s = id, s[digits:]
	}

	switch p.Type {
	case PacketEvent, PacketAck:
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		if p.Type == PacketAck {
			if len(args) > 0 {
				p.Data = args[0]
			}
			return p, nil
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("event without name")
		}
		if err := json.Unmarshal(args[0], &p.Event); err != nil {
			return nil, fmt.Errorf("decode event name: %w", err)
		}
		if len(args) > 1 {
			p.Data = args[1]
		}
	case PacketConnect, PacketConnectError:
		if s != "" {
			p.Data = json.RawMessage(s)
		}
	}
	return p, nil
}

// NewEvent builds an event frame carrying data as its single argument.
func NewEvent(event string, data any) (Frame, error) {
	p := &Packet{Type: PacketEvent, AckID: -1, Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
		}
		p.Data = raw
	}
	return Frame{Engine: EngineMessage, Packet: p}, nil
}

// NewPacket builds a message frame for the default namespace.
func NewPacket(t PacketType, data any) (Frame, error) {
	p := &Packet{Type: t, AckID: -1}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Frame{}, err
		}
		p.Data = raw
	}
	return Frame{Engine: EngineMessage, Packet: p}, nil
}

// EndpointURL turns the configured server origin into the WebSocket endpoint
// of the Engine.IO transport.
func EndpointURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("socket url %q must use http, https, ws or wss", serverURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("socket url %q has no host", serverURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
