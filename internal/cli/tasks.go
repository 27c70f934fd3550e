package cli

import (
	"context"
	"fmt"
	"slices"

	"taskportal/pkg/domain"
)

func (c *CLI) tasks(ctx context.Context, args []string) error {
	action, rest := leadingArg(args)
	switch action {
	case "", "list":
		return c.listTasks(ctx, rest)
	case "create":
		return c.saveTask(ctx, "", rest)
	case "update":
		id, rest := leadingArg(rest)
		if id == "" {
			return usagef("usage: portal tasks update <id> -project <id> [flags]")
		}
		return c.saveTask(ctx, domain.TaskID(id), rest)
	case "delete":
		return c.deleteTask(ctx, rest)
	default:
		return usagef("unknown tasks action %q (list, create, update, delete)", action)
	}
}

// listTasks lists one project's tasks, or every task of the caller's
// projects. -mine keeps only tasks assigned to the caller.
func (c *CLI) listTasks(ctx context.Context, args []string) error {
	fs := c.flags("tasks list")
	project := fs.String("project", "", "project id; all of your projects when empty")
	mine := fs.Bool("mine", false, "only tasks assigned to you")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if *project != "" {
		err = app.Tasks.FetchByProject(ctx, domain.ProjectID(*project))
	} else {
		err = app.LoadWorkspace(ctx)
	}
	if err != nil {
		return err
	}
	list := app.Tasks.State().Tasks
	if *mine {
		list = tasksAssignedTo(list, app.Session.User().ID)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No tasks")
		return nil
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDEADLINE\tASSIGNEE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Status, t.Priority, orDash(t.Deadline.Input()), orDash(t.Assignee.Display()))
	}
	return tw.Flush()
}

func tasksAssignedTo(list []domain.Task, id domain.UserID) []domain.Task {
	return slices.DeleteFunc(slices.Clone(list), func(t domain.Task) bool { return !t.Assignee.Refers(id) })
}

// saveTask creates a task, or replaces id. Updates send the whole record, so
// the current task is loaded from its project and the given flags applied on
// top.
func (c *CLI) saveTask(ctx context.Context, id domain.TaskID, args []string) error {
	fs := c.flags("tasks save")
	project := fs.String("project", "", "project id")
	title := fs.String("title", "", "title")
	description := fs.String("description", "", "description")
	status := fs.String("status", "", "To-Do, In Progress or Done")
	priority := fs.String("priority", "", "low, medium or high")
	deadline := fs.String("deadline", "", "deadline, yyyy-mm-dd")
	assignee := fs.String("assignee", "", "assignee user id")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if *project == "" {
		return usagef("-project is required")
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}

	in := domain.TaskInput{ProjectID: domain.ProjectID(*project)}
	if id != "" {
		if err := app.Tasks.FetchByProject(ctx, in.ProjectID); err != nil {
			return err
		}
		i := slices.IndexFunc(app.Tasks.State().Tasks, func(t domain.Task) bool { return t.ID == id })
		if i < 0 {
			return usagef("task %s is not in project %s", id, *project)
		}
		in = inputFrom(app.Tasks.State().Tasks[i])
	}
	set := setFlags(fs)
	if set["title"] {
		in.Title = *title
	}
	if set["description"] {
		in.Description = *description
	}
	if set["status"] {
		in.Status = domain.TaskStatus(*status)
	}
	if set["priority"] {
		in.Priority = domain.Priority(*priority)
	}
	if set["deadline"] {
		in.Deadline = *deadline
	}
	if set["assignee"] {
		in.Assignee = domain.UserID(*assignee)
	}

	var saved *domain.Task
	if id == "" {
		saved, err = app.Tasks.Create(ctx, in)
	} else {
		saved, err = app.Tasks.Update(ctx, id, in)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved task %s (%s, %s)\n", saved.Title, saved.ID, saved.Status)
	return nil
}

func inputFrom(t domain.Task) domain.TaskInput {
	return domain.TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Deadline:    t.Deadline.Input(),
		Assignee:    t.Assignee.ID,
		ProjectID:   t.ProjectID,
	}
}

func (c *CLI) deleteTask(ctx context.Context, args []string) error {
	id, rest := leadingArg(args)
	if id == "" {
		return usagef("usage: portal tasks delete <id>")
	}
	if err := parse(c.flags("tasks delete"), rest, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := app.Tasks.Delete(ctx, domain.TaskID(id)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted task %s\n", id)
	return nil
}
