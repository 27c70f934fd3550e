package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taskportal/internal/portal"
	"taskportal/internal/projects"
	"taskportal/pkg/domain"
	pstrings "taskportal/pkg/platform/strings"
)

func (c *CLI) projects(ctx context.Context, args []string) error {
	action, rest := leadingArg(args)
	switch action {
	case "", "list":
		return c.listProjects(ctx, rest)
	case "show":
		return c.showProject(ctx, rest)
	case "create":
		return c.saveProject(ctx, "", rest)
	case "update":
		id, rest := leadingArg(rest)
		if id == "" {
			return usagef("usage: portal projects update <id> [flags]")
		}
		return c.saveProject(ctx, domain.ProjectID(id), rest)
	case "delete":
		return c.deleteProject(ctx, rest)
	default:
		return usagef("unknown projects action %q (list, show, create, update, delete)", action)
	}
}

func (c *CLI) listProjects(ctx context.Context, args []string) error {
	if err := parse(c.flags("projects list"), args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := app.Projects.FetchAll(ctx); err != nil {
		return err
	}
	list := app.Projects.State().Projects
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No projects")
		return nil
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tDEADLINE\tMEMBERS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, orDash(p.Deadline.Input()), len(p.Members))
	}
	return tw.Flush()
}

func (c *CLI) showProject(ctx context.Context, args []string) error {
	id, rest := leadingArg(args)
	if id == "" {
		return usagef("usage: portal projects show <id>")
	}
	if err := parse(c.flags("projects show"), rest, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	p, err := app.Projects.Fetch(ctx, domain.ProjectID(id))
	if err != nil {
		return err
	}
	members := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, m.Display())
	}
	tw := c.table()
	fmt.Fprintf(tw, "ID\t%s\n", p.ID)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Description\t%s\n", orDash(p.Description))
	fmt.Fprintf(tw, "Deadline\t%s\n", orDash(p.Deadline.Input()))
	fmt.Fprintf(tw, "Created by\t%s\n", orDash(p.CreatedBy.Display()))
	fmt.Fprintf(tw, "Members\t%s\n", orDash(strings.Join(members, ", ")))
	if p.File != nil {
		fmt.Fprintf(tw, "File\t%s\n", p.File.URL)
	}
	return tw.Flush()
}

// saveProject creates a project, or updates id starting from its current
// values so unspecified flags keep them.
func (c *CLI) saveProject(ctx context.Context, id domain.ProjectID, args []string) error {
	fs := c.flags("projects save")
	name := fs.String("name", "", "project name")
	description := fs.String("description", "", "description")
	deadline := fs.String("deadline", "", "deadline, yyyy-mm-dd")
	members := fs.String("members", "", "comma separated user ids")
	file := fs.String("file", "", "attachment to upload")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}

	var form projects.Form
	if id != "" {
		current, err := app.Projects.Fetch(ctx, id)
		if err != nil {
			return err
		}
		form = projects.FormFrom(*current)
	}
	set := setFlags(fs)
	if set["name"] {
		form.Name = *name
	}
	if set["description"] {
		form.Description = *description
	}
	if set["deadline"] {
		form.Deadline = *deadline
	}
	if set["members"] {
		form.Members = pstrings.SplitList[domain.UserID](*members, ",")
	}
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return usagef("open attachment: %v", err)
		}
		defer f.Close()
		form.File = f
		form.Filename = filepath.Base(*file)
	}

	var saved *domain.Project
	if id == "" {
		saved, err = app.Projects.Create(ctx, form)
	} else {
		saved, err = app.Projects.Update(ctx, id, form)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved project %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func (c *CLI) deleteProject(ctx context.Context, args []string) error {
	id, rest := leadingArg(args)
	if id == "" {
		return usagef("usage: portal projects delete <id>")
	}
	if err := parse(c.flags("projects delete"), rest, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := app.Projects.Delete(ctx, domain.ProjectID(id)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted project %s\n", id)
	return nil
}

func (c *CLI) users(ctx context.Context, args []string) error {
	if err := parse(c.flags("users"), args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := app.Users.FetchAll(ctx); err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tEMAIL\tROLE")
	for _, u := range app.Users.State().Users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, u.Email, u.Role)
	}
	return tw.Flush()
}

func (c *CLI) analytics(ctx context.Context, args []string) error {
	if err := parse(c.flags("analytics"), args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := app.LoadWorkspace(ctx); err != nil {
		return err
	}
	user := app.Session.User()
	sections := make([]string, 0, 4)
	for _, s := range portal.Sections(user.Role) {
		sections = append(sections, string(s))
	}
	fmt.Fprintf(c.out, "%s (%s): %s\n\n", user.Name, user.Role, strings.Join(sections, " | "))

	projectList := app.Projects.State().Projects
	taskList := app.Tasks.State().Tasks
	tw := c.table()
	if user.Role.IsAdmin() {
		report := portal.Analytics(projectList, taskList)
		fmt.Fprintf(tw, "Projects\t%d\n", report.TotalProjects)
		fmt.Fprintf(tw, "Tasks\t%d\n", report.TotalTasks)
		for _, st := range domain.TaskStatuses {
			fmt.Fprintf(tw, "  %s\t%d\n", st, report.ByStatus[st])
		}
		fmt.Fprintln(tw, "\t")
		fmt.Fprintln(tw, "PROJECT\tTASKS")
		for _, pc := range report.PerProject {
			fmt.Fprintf(tw, "%s\t%d\n", pc.Project.Name, pc.Count)
		}
		return tw.Flush()
	}
	summary := portal.EmployeeSummary(*user, projectList, taskList)
	fmt.Fprintf(tw, "My projects\t%d\n", summary.ProjectCount)
	fmt.Fprintf(tw, "My tasks\t%d\n", len(summary.MyTasks))
	for _, st := range domain.TaskStatuses {
		fmt.Fprintf(tw, "  %s\t%d\n", st, summary.ByStatus[st])
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
