package domain

import "encoding/json"

// Typed identifiers. The backend emits opaque strings (Mongo object ids), so
// these are plain string types; the distinct types keep a task id from being
// passed where a project id is expected.
type (
	UserID    string
	ProjectID string
	TaskID    string
)

func (id UserID) String() string    { return string(id) }
func (id ProjectID) String() string { return string(id) }
func (id TaskID) String() string    { return string(id) }

// entityID holds the two spellings of an entity id seen on the wire. The
// backend uses "_id"; fixtures and some proxies use "id".
type entityID struct {
	Mongo string `json:"_id"`
	Plain string `json:"id"`
}

func (e entityID) value() string {
	if e.Mongo != "" {
		return e.Mongo
	}
	return e.Plain
}

func decodeEntityID(b []byte) (string, error) {
	var e entityID
	if err := json.Unmarshal(b, &e); err != nil {
		return "", err
	}
	return e.value(), nil
}
