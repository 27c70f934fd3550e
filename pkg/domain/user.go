package domain

import (
	"encoding/json"
	"strings"

	dErrors "taskportal/pkg/domain-errors"
)

// Role decides which store operations and dashboard sections are reachable.
// Invariant: one of RoleAdmin or RoleEmployee. The backend has been seen sending
// both "admin" and "ADMIN", so comparisons are case-insensitive.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, nil
	case strings.EqualFold(s, string(RoleEmployee)):
		return RoleEmployee, nil
	case s == "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
}

// IsAdmin reports whether r is the administrator role in any casing.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(string(r), string(RoleAdmin))
}

func (r Role) String() string {
	return string(r)
}

// Asset is an uploaded file reference served by the backend's file storage.
type Asset struct {
	URL string `json:"url"`
}

// User is the account record returned by the backend. It is never edited
// locally; a fresh copy only arrives through an explicit refetch.
type User struct {
	ID           UserID `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	ProfileImage *Asset `json:"profileImage,omitempty"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	id, err := decodeEntityID(b)
	if err != nil {
		return err
	}
	*u = User(a)
	u.ID = UserID(id)
	return nil
}

// UserRef is a reference that arrives either as a bare string or as an
// embedded user object, depending on whether the backend populated it.
// A bare string is kept verbatim in ID.
type UserRef struct {
	ID   UserID
	User *User
}

// RefTo builds a populated reference.
func RefTo(u User) UserRef {
	return UserRef{ID: u.ID, User: &u}
}

// RefID builds an unpopulated reference.
func RefID(id UserID) UserRef {
	return UserRef{ID: id}
}

func (r *UserRef) UnmarshalJSON(b []byte) error {
	*r = UserRef{}
	trimmed := strings.TrimSpace(string(b))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		r.ID = UserID(s)
		return nil
	default:
		var u User
		if err := json.Unmarshal(b, &u); err != nil {
			return err
		}
		r.ID = u.ID
		r.User = &u
		return nil
	}
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.User != nil {
		return json.Marshal(r.User)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r.ID))
}

// IsZero reports whether the reference points at nobody.
func (r UserRef) IsZero() bool {
	return r.ID == "" && r.User == nil
}

// Display returns the user's name when populated, otherwise the raw reference.
func (r UserRef) Display() string {
	if r.User != nil && r.User.Name != "" {
		return r.User.Name
	}
	return string(r.ID)
}

// Refers reports whether the reference points at id.
func (r UserRef) Refers(id UserID) bool {
	if id == "" {
		return false
	}
	if r.User != nil {
		return r.User.ID == id
	}
	return r.ID == id
}
