package projects

import (
	"io"
	"strings"

	"taskportal/internal/api"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	pstrings "taskportal/pkg/platform/strings"
)

// Form is the create/edit project form as entered by a user.
type Form struct {
	Name        string
	Description string
	// Deadline is in input form (yyyy-mm-dd); empty omits it.
	Deadline string
	Members  []domain.UserID
	// File is an optional attachment sent as projectFile.
	File     io.Reader
	Filename string
}

// Validate runs the checks the form performs before any network call.
func (f Form) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(f.Name) == "" {
		fields["name"] = "Project name is required"
	}
	if f.Deadline != "" {
		if _, err := domain.ParseInputDate(f.Deadline); err != nil {
			fields["deadline"] = "Deadline must be yyyy-mm-dd"
		}
	}
	if len(fields) > 0 {
		return dErrors.Validation("invalid project", fields)
	}
	return nil
}

// Multipart encodes the form the way the backend expects it: the deadline in
// wire form and the members as a JSON array of ids.
func (f Form) Multipart() (*api.Multipart, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	form := api.NewMultipart().
		Field("name", f.Name).
		Field("description", f.Description)
	if f.Deadline != "" {
		wire, err := domain.ReformatInputDate(f.Deadline)
		if err != nil {
			return nil, err
		}
		form.Field("deadline", wire)
	}
	members := pstrings.DedupeAndTrim(f.Members)
	if members == nil {
		members = []domain.UserID{}
	}
	if err := form.JSONField("members", members); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid members")
	}
	if f.File != nil {
		name := f.Filename
		if name == "" {
			name = "attachment"
		}
		form.File("projectFile", name, f.File)
	}
	return form, nil
}

// FormFrom prefills an edit form from an existing project.
func FormFrom(p domain.Project) Form {
	f := Form{
		Name:        p.Name,
		Description: p.Description,
		Members:     make([]domain.UserID, 0, len(p.Members)),
	}
	if !p.Deadline.IsZero() {
		f.Deadline = p.Deadline.Input()
	}
	for _, m := range p.Members {
		f.Members = append(f.Members, m.ID)
	}
	return f
}
