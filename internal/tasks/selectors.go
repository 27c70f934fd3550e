package tasks

import (
	"taskportal/pkg/domain"
)

// AssignedTo returns the tasks whose assignee is id, whether the assignee
// arrived as a bare id or as an embedded user.
func AssignedTo(tasks []domain.Task, id domain.UserID) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if t.Assignee.Refers(id) {
			out = append(out, t)
		}
	}
	return out
}

// StatusCounts tallies tasks per status. Every known status is present, even
// when zero. Unknown statuses are counted under their own key.
func StatusCounts(tasks []domain.Task) map[domain.TaskStatus]int {
	counts := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	for _, st := range domain.TaskStatuses {
		counts[st] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// ProjectCount is the number of loaded tasks that belong to one project.
type ProjectCount struct {
	Project domain.Project
	Count   int
}

// CountByProject counts tasks per project, in project order. Tasks of
// projects not in the list are ignored.
func CountByProject(projects []domain.Project, tasks []domain.Task) []ProjectCount {
	byID := make(map[domain.ProjectID]int, len(projects))
	for _, t := range tasks {
		byID[t.ProjectID]++
	}
	out := make([]ProjectCount, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectCount{Project: p, Count: byID[p.ID]})
	}
	return out
}
