// Package cli is the terminal front end of the portal: one subcommand per
// dashboard action, each a thin consumer of the portal stores.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"taskportal/internal/portal"
	dErrors "taskportal/pkg/domain-errors"
)

const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitLoginNeeded = 3
	ExitConfigError = 4
)

// UsageError reports a malformed invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// AppFactory builds the application for a run. It is called at most once.
type AppFactory func(ctx context.Context) (*portal.App, error)

// CLI routes subcommands to their handlers.
type CLI struct {
	newApp AppFactory
	app    *portal.App
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func New(newApp AppFactory, in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{newApp: newApp, in: in, out: out, errOut: errOut}
}

type command struct {
	name    string
	summary string
	run     func(c *CLI, ctx context.Context, args []string) error
}

var commands = []command{
	{"login", "sign in and remember the session", (*CLI).login},
	{"logout", "forget the session", (*CLI).logout},
	{"whoami", "show the signed-in user", (*CLI).whoami},
	{"register", "create an account", (*CLI).register},
	{"projects", "list, show, create, update or delete projects", (*CLI).projects},
	{"tasks", "list, create, update or delete tasks", (*CLI).tasks},
	{"users", "list users (administrators)", (*CLI).users},
	{"analytics", "show the dashboard for your role", (*CLI).analytics},
	{"chat", "join a project chat room", (*CLI).chat},
}

// Run executes one invocation and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	defer func() {
		if c.app != nil {
			_ = c.app.Close()
		}
	}()
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.printUsage(c.out)
		return ExitSuccess
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return c.exitCode(cmd.run(c, ctx, args[1:]))
		}
	}
	fmt.Fprintf(c.errOut, "unknown command %q\n\n", args[0])
	c.printUsage(c.errOut)
	return ExitUsage
}

func (c *CLI) printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: portal <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	_ = tw.Flush()
}

func (c *CLI) exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintln(c.errOut, usage.Message)
		return ExitUsage
	case errors.Is(err, flag.ErrHelp):
		return ExitSuccess
	case errors.Is(err, dErrors.ErrLoginRequired):
		fmt.Fprintln(c.errOut, "not signed in; run: portal login -u <email or username> -p <password>")
		return ExitLoginNeeded
	case dErrors.HasCode(err, dErrors.CodeInvalidInput) && c.app == nil:
		fmt.Fprintln(c.errOut, "configuration error:", dErrors.Message(err))
		return ExitConfigError
	}
	fmt.Fprintln(c.errOut, "error:", dErrors.Message(err))
	fields := dErrors.Fields(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.errOut, "  %s: %s\n", name, fields[name])
	}
	return ExitFailure
}

// portal builds the application on first use.
func (c *CLI) portal(ctx context.Context) (*portal.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := c.newApp(ctx)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

// signedIn returns the application with a loaded user.
func (c *CLI) signedIn(ctx context.Context) (*portal.App, error) {
	app, err := c.portal(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := app.EnsureSession(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("portal "+name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

// parse parses args and rejects leftovers beyond maxArgs positional arguments.
func parse(fs *flag.FlagSet, args []string, maxArgs int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usagef("%v", err)
	}
	if fs.NArg() > maxArgs {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args()[maxArgs:], " "))
	}
	return nil
}

// leadingArg splits off a positional argument written before the flags, as
// in "tasks update <id> -status Done".
func leadingArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (c *CLI) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}
