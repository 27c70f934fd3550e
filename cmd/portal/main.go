package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskportal/internal/cli"
	"taskportal/internal/platform/config"
	"taskportal/internal/platform/logger"
	"taskportal/internal/portal"
)

// main loads configuration and hands the arguments to the CLI. Logs go to
// stderr so command output stays pipeable.
func main() {
	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(cli.ExitConfigError)
	}
	cfg := config.FromEnv()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(func(ctx context.Context) (*portal.App, error) {
		return portal.New(ctx, cfg, portal.WithLogger(log))
	}, os.Stdin, os.Stdout, os.Stderr)
	code := c.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
