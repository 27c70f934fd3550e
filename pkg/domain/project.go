package domain

import "encoding/json"

// Project is a unit of work owned by the project store. Members and CreatedBy
// are populated users in list responses but may be bare ids elsewhere.
type Project struct {
	ID          ProjectID `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Deadline    Date      `json:"deadline"`
	Members     []UserRef `json:"members"`
	File        *Asset    `json:"file,omitempty"`
	CreatedBy   UserRef   `json:"createdBy"`
}

func (p *Project) UnmarshalJSON(b []byte) error {
	type alias Project
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	id, err := decodeEntityID(b)
	if err != nil {
		return err
	}
	*p = Project(a)
	p.ID = ProjectID(id)
	return nil
}

// HasMember reports whether id is listed among the project members.
func (p Project) HasMember(id UserID) bool {
	for _, m := range p.Members {
		if m.Refers(id) {
			return true
		}
	}
	return false
}
