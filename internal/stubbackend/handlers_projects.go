package stubbackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/httputil"
	pstrings "taskportal/pkg/platform/strings"
	"taskportal/pkg/requestcontext"
)

// projectForm is the parsed multipart body of a project create or edit.
// Absent fields stay nil so an edit only touches what was sent.
type projectForm struct {
	patch  projectPatch
	fields map[string]string
}

func (s *Server) parseProjectForm(r *http.Request) (projectForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return projectForm{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "Expected a multipart form")
	}
	form := projectForm{fields: map[string]string{}}
	values := r.MultipartForm.Value

	if v, ok := values["name"]; ok {
		name := strings.TrimSpace(first(v))
		if name == "" {
			form.fields["name"] = "Project name is required"
		}
		form.patch.name = &name
	}
	if v, ok := values["description"]; ok {
		description := first(v)
		form.patch.description = &description
	}
	if v, ok := values["deadline"]; ok && strings.TrimSpace(first(v)) != "" {
		deadline, err := domain.ParseWireDate(first(v))
		if err != nil {
			form.fields["deadline"] = "Deadline must be dd-mm-yyyy"
		} else {
			form.patch.deadline = &deadline
		}
	}
	if v, ok := values["members"]; ok {
		var members []domain.UserID
		if err := json.Unmarshal([]byte(first(v)), &members); err != nil {
			form.fields["members"] = "Members must be a JSON array of user ids"
		}
		form.patch.members = pstrings.DedupeAndTrim(members)
		if form.patch.members == nil {
			form.patch.members = []domain.UserID{}
		}
		form.patch.setMembers = true
	}
	file, err := s.saveFormFile(r, "projectFile")
	if err != nil {
		return projectForm{}, err
	}
	form.patch.file = file
	return form, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := s.parseProjectForm(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if form.patch.name == nil {
		form.fields["name"] = "Project name is required"
	}
	if len(form.fields) > 0 {
		httputil.WriteError(w, dErrors.Validation("Validation failed", form.fields))
		return
	}

	rec := projectRecord{
		name:      *form.patch.name,
		members:   form.patch.members,
		file:      form.patch.file,
		createdBy: requestcontext.UserID(ctx),
	}
	if form.patch.description != nil {
		rec.description = *form.patch.description
	}
	if form.patch.deadline != nil {
		rec.deadline = *form.patch.deadline
	}
	project, err := s.db.addProject(rec)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	s.logger.InfoContext(ctx, "project created",
		"project_id", project.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, project, "Project created successfully")
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseProjectForm(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(form.fields) > 0 {
		httputil.WriteError(w, dErrors.Validation("Validation failed", form.fields))
		return
	}
	project, err := s.db.updateProject(domain.ProjectID(chi.URLParam(r, "id")), form.patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project, "Project updated successfully")
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := domain.ProjectID(chi.URLParam(r, "id"))
	if err := s.db.deleteProject(id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	s.logger.InfoContext(ctx, "project deleted",
		"project_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, nil, "Project deleted successfully")
}

func (s *Server) handleListAllProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	httputil.WriteJSON(w, http.StatusOK, s.db.listProjects(requestcontext.UserID(ctx), domain.RoleAdmin), "")
}

// handleListMemberProjects lists the caller's projects even for
// administrators; the all-projects view is a separate route.
func (s *Server) handleListMemberProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	httputil.WriteJSON(w, http.StatusOK, s.db.listProjects(requestcontext.UserID(ctx), domain.RoleEmployee), "")
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project, err := s.db.project(domain.ProjectID(chi.URLParam(r, "id")), requestcontext.UserID(ctx), requestcontext.Role(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project, "")
}
