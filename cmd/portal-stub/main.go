package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskportal/internal/platform/config"
	"taskportal/internal/platform/httpserver"
	"taskportal/internal/platform/logger"
	"taskportal/internal/stubbackend"
)

// main runs the in-memory backend so the portal client can be tried locally.
func main() {
	if err := config.LoadDotEnv(""); err != nil {
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg := config.StubFromEnv()
	log := logger.New(os.Stderr, os.Getenv("STUB_LOG_LEVEL"), os.Getenv("STUB_LOG_FORMAT"))

	backend, err := stubbackend.New(cfg, stubbackend.WithLogger(log))
	if err != nil {
		log.Error("failed to build stub backend", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Addr, backend.Handler())

	log.Info("starting portal stub", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("portal stub stopped")
}
