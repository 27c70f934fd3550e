package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskportal/internal/session"
)

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	identifier := fs.String("u", "", "email or username")
	password := fs.String("p", "", "password (defaults to $PORTAL_PASSWORD)")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("PORTAL_PASSWORD")
	}
	if *identifier == "" || *password == "" {
		return usagef("login needs -u and -p")
	}
	app, err := c.portal(ctx)
	if err != nil {
		return err
	}
	res, err := app.Session.Login(ctx, *identifier, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", res.User.Name, res.User.Role)
	return nil
}

func (c *CLI) logout(ctx context.Context, args []string) error {
	if err := parse(c.flags("logout"), args, 0); err != nil {
		return err
	}
	app, err := c.portal(ctx)
	if err != nil {
		return err
	}
	if err := app.Session.Restore(ctx); err != nil {
		return err
	}
	if err := app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *CLI) whoami(ctx context.Context, args []string) error {
	if err := parse(c.flags("whoami"), args, 0); err != nil {
		return err
	}
	app, err := c.signedIn(ctx)
	if err != nil {
		return err
	}
	u := app.Session.User()
	tw := c.table()
	fmt.Fprintf(tw, "Name\t%s\n", u.Name)
	fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Role\t%s\n", u.Role)
	if exp, ok := app.Session.TokenExpiry(); ok {
		fmt.Fprintf(tw, "Session expires\t%s\n", exp.Local().Format(time.RFC1123))
	}
	return tw.Flush()
}

func (c *CLI) register(ctx context.Context, args []string) error {
	fs := c.flags("register")
	var form session.RegisterForm
	fs.StringVar(&form.Name, "name", "", "full name")
	fs.StringVar(&form.Username, "username", "", "username")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Password, "password", "", "password")
	image := fs.String("image", "", "profile image file")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return usagef("open profile image: %v", err)
		}
		defer f.Close()
		form.ProfileImage = f
		form.Filename = filepath.Base(*image)
	}
	app, err := c.portal(ctx)
	if err != nil {
		return err
	}
	reg, err := app.Session.Register(ctx, form)
	if err != nil {
		return err
	}
	msg := reg.Message
	if msg == "" {
		msg = "Registered"
	}
	fmt.Fprintf(c.out, "%s: %s <%s>\nSign in with: portal login -u %s\n", msg, reg.User.Name, reg.User.Email, reg.User.Username)
	return nil
}
