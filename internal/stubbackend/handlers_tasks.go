package stubbackend

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/platform/httputil"
	"taskportal/pkg/requestcontext"
)

// taskFromInput validates a task body. Deadlines are accepted in either the
// form or the wire layout.
func taskFromInput(in domain.TaskInput) (domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in = in.WithDefaults()
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "Title is required"
	}
	if in.ProjectID == "" {
		fields["projectId"] = "Project is required"
	}
	if _, err := domain.ParseTaskStatus(string(in.Status)); err != nil {
		fields["status"] = "Invalid status"
	}
	if _, err := domain.ParsePriority(string(in.Priority)); err != nil {
		fields["priority"] = "Invalid priority"
	}
	var deadline domain.Date
	if strings.TrimSpace(in.Deadline) != "" {
		d, err := domain.ParseInputDate(in.Deadline)
		if err != nil {
			d, err = domain.ParseWireDate(in.Deadline)
		}
		if err != nil {
			fields["deadline"] = "Invalid deadline"
		}
		deadline = d
	}
	if len(fields) > 0 {
		return domain.Task{}, dErrors.Validation("Validation failed", fields)
	}
	return domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Deadline:    deadline,
		Assignee:    domain.RefID(in.Assignee),
		ProjectID:   in.ProjectID,
	}, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := domain.ProjectID(chi.URLParam(r, "projectId"))
	if _, err := s.db.project(projectID, requestcontext.UserID(ctx), requestcontext.Role(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.db.listTasks(projectID), "")
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in domain.TaskInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := taskFromInput(in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := s.db.addTask(task)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	s.logger.InfoContext(ctx, "task created",
		"task_id", created.ID,
		"project_id", created.ProjectID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, created, "Task created successfully")
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in domain.TaskInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := taskFromInput(in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	task.ID = domain.TaskID(chi.URLParam(r, "id"))
	updated, err := s.db.replaceTask(task, requestcontext.UserID(ctx), requestcontext.Role(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated, "Task updated successfully")
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.db.deleteTask(domain.TaskID(chi.URLParam(r, "id"))); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil, "Task deleted successfully")
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := domain.ProjectID(chi.URLParam(r, "projectId"))
	if _, err := s.db.project(projectID, requestcontext.UserID(ctx), requestcontext.Role(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.db.listMessages(projectID), "")
}
