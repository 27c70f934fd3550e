package cli

import (
	"bufio"
	"context"
	"fmt"

	"taskportal/internal/chat"
	"taskportal/pkg/domain"
)

// chat joins a project room, prints the history and every new message, and
// sends each input line until end of input or cancellation.
func (c *CLI) chat(ctx context.Context, args []string) error {
	fs := c.flags("chat")
	project := fs.String("project", "", "project id")
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

	room := app.Room(domain.ProjectID(*project))
	printed := 0
	unsubscribe := room.Subscribe(func(st chat.State) {
		if printed > len(st.Messages) {
			printed = 0
		}
		for _, m := range st.Messages[printed:] {
			fmt.Fprintf(c.out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Sender.Display(), m.Content)
		}
		printed = len(st.Messages)
	})
	defer unsubscribe()

	if err := room.Mount(ctx); err != nil {
		return err
	}
	defer room.Unmount()
	fmt.Fprintf(c.errOut, "joined %s; type a message and press enter, end input to leave\n", *project)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return err
					}
				default:
				}
				return nil
			}
			if err := room.Send(ctx, line); err != nil {
				return err
			}
		}
	}
}
