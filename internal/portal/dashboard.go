package portal

import (
	"taskportal/internal/tasks"
	"taskportal/pkg/domain"
)

// Section is a dashboard navigation entry.
type Section string

const (
	SectionProjects   Section = "Projects"
	SectionTasks      Section = "Tasks"
	SectionUsers      Section = "Users"
	SectionAnalytics  Section = "Analytics"
	SectionDashboard  Section = "Dashboard"
	SectionMyProjects Section = "My Projects"
	SectionMyTasks    Section = "My Tasks"
)

// Sections lists the navigation entries a role can reach, in display order.
func Sections(role domain.Role) []Section {
	if role.IsAdmin() {
		return []Section{SectionProjects, SectionTasks, SectionUsers, SectionAnalytics}
	}
	return []Section{SectionDashboard, SectionMyProjects, SectionMyTasks}
}

// AnalyticsReport is the administrator's overview of the loaded workspace.
type AnalyticsReport struct {
	TotalProjects int
	TotalTasks    int
	ByStatus      map[domain.TaskStatus]int
	PerProject    []tasks.ProjectCount
}

// Analytics summarises projects and tasks. Only the given data is counted.
func Analytics(projects []domain.Project, list []domain.Task) AnalyticsReport {
	return AnalyticsReport{
		TotalProjects: len(projects),
		TotalTasks:    len(list),
		ByStatus:      tasks.StatusCounts(list),
		PerProject:    tasks.CountByProject(projects, list),
	}
}

// EmployeeDashboard is what an employee sees on sign-in.
type EmployeeDashboard struct {
	ProjectCount int
	MyTasks      []domain.Task
	ByStatus     map[domain.TaskStatus]int
}

// EmployeeSummary counts the user's projects and the tasks assigned to them.
func EmployeeSummary(user domain.User, projects []domain.Project, list []domain.Task) EmployeeDashboard {
	mine := tasks.AssignedTo(list, user.ID)
	return EmployeeDashboard{
		ProjectCount: len(projects),
		MyTasks:      mine,
		ByStatus:     tasks.StatusCounts(mine),
	}
}
