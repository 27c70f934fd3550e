package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Message is one chat line in a project room.
type Message struct {
	Content   string    `json:"content"`
	Sender    UserRef   `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	// ProjectID names the room. Some payloads omit it.
	ProjectID ProjectID `json:"projectId,omitempty"`
}

// UnmarshalJSON accepts timestamp as an RFC 3339 string or as epoch
// milliseconds, and falls back to createdAt, which stored history carries
// instead of timestamp.
func (m *Message) UnmarshalJSON(b []byte) error {
	type alias Message
	var raw struct {
		alias
		Timestamp json.RawMessage `json:"timestamp"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Message(raw.alias)

	ts, err := decodeInstant(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if ts.IsZero() {
		if ts, err = decodeInstant(raw.CreatedAt); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
	}
	m.Timestamp = ts
	return nil
}

// decodeInstant reads a JSON string time or a number of epoch milliseconds.
// Absent and null values decode to the zero time.
func decodeInstant(b json.RawMessage) (time.Time, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return time.Time{}, nil
	}
	if b[0] == '"' {
		var t time.Time
		err := json.Unmarshal(b, &t)
		return t, err
	}
	var ms json.Number
	if err := json.Unmarshal(b, &ms); err != nil {
		return time.Time{}, err
	}
	if n, err := ms.Int64(); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	f, err := ms.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(f)).UTC(), nil
}
