// Command parley runs the Parley chat server: a line-oriented TCP listener
// for chat clients plus an HTTP listener for health checks, room listings,
// and WebSocket clients.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-chat/parley/internal/chat"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := chat.ConfigFromEnv()
	srv := chat.NewServer(cfg)

	go func() {
		if err := srv.ListenAndServeHTTP(); err != nil {
			slog.Error("http server failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-sig:
		slog.Info("signal received, shutting down")
		if err := srv.Shutdown(shutdownTimeout); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
			os.Exit(1)
		}
	}
}
