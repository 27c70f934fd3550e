package domain

import (
	"encoding/json"

	dErrors "taskportal/pkg/domain-errors"
)

// TaskStatus is the board column of a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To-Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// TaskStatuses lists the statuses in board order.
var TaskStatuses = []TaskStatus{StatusToDo, StatusInProgress, StatusDone}

// ParseTaskStatus constructs a TaskStatus from external input.
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range TaskStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status "+s)
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority constructs a Priority from external input.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid priority "+s)
}

// Task belongs to a project by id only; the project need not be loaded.
type Task struct {
	ID          TaskID     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Deadline    Date       `json:"deadline"`
	Assignee    UserRef    `json:"assignee"`
	ProjectID   ProjectID  `json:"projectId"`
}

func (t *Task) UnmarshalJSON(b []byte) error {
	type alias Task
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	id, err := decodeEntityID(b)
	if err != nil {
		return err
	}
	*t = Task(a)
	t.ID = TaskID(id)
	return nil
}

// TaskInput is the JSON body for task create and update. Updates send the
// whole record; the backend replaces rather than merges.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	// Deadline is the form value, yyyy-mm-dd or empty.
	Deadline  string    `json:"deadline,omitempty"`
	Assignee  UserID    `json:"assignee,omitempty"`
	ProjectID ProjectID `json:"projectId"`
}

// Validate enforces the invariants a form can check before any network call.
func (in TaskInput) Validate() error {
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "Title is required"
	}
	if in.ProjectID == "" {
		fields["projectId"] = "Project is required"
	}
	if in.Status != "" {
		if _, err := ParseTaskStatus(string(in.Status)); err != nil {
			fields["status"] = "Invalid status"
		}
	}
	if in.Priority != "" {
		if _, err := ParsePriority(string(in.Priority)); err != nil {
			fields["priority"] = "Invalid priority"
		}
	}
	if in.Deadline != "" {
		if _, err := ParseInputDate(in.Deadline); err != nil {
			fields["deadline"] = "Deadline must be yyyy-mm-dd"
		}
	}
	if len(fields) > 0 {
		return dErrors.Validation("invalid task", fields)
	}
	return nil
}

// WithDefaults fills the values a new-task form starts with.
func (in TaskInput) WithDefaults() TaskInput {
	if in.Status == "" {
		in.Status = StatusToDo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in
}
