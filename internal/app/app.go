// Package app wires the process: environment, logger, room manager, and the
// HTTP server, with a graceful shutdown path.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	server "dodge-royale/server"
	servernet "dodge-royale/server/internal/net"
	"dodge-royale/server/logging"
)

const shutdownTimeout = 5 * time.Second

// Run starts the server and blocks until the context is cancelled or a
// termination signal arrives.
func Run(ctx context.Context) error {
	// A missing .env is fine; the environment may be set by the host.
	_ = godotenv.Load()

	addr := envOr("ROYALE_ADDR", ":8080")
	logger, err := logging.New(os.Getenv("ROYALE_LOG_FILE"))
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := server.DefaultConfig()
	if raw := os.Getenv("ROYALE_MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.MaxPlayers = value
		} else {
			logger.Warnf("invalid ROYALE_MAX_PLAYERS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("ROYALE_TICK_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TickInterval = time.Duration(value) * time.Millisecond
		} else {
			logger.Warnf("invalid ROYALE_TICK_MS=%q", raw)
		}
	}
	if raw := os.Getenv("ROYALE_COUNTDOWN_SEC"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Countdown = time.Duration(value) * time.Second
		} else {
			logger.Warnf("invalid ROYALE_COUNTDOWN_SEC=%q", raw)
		}
	}

	manager := server.NewRoomManager(cfg, logger)
	defer manager.Shutdown()

	srv := &http.Server{
		Addr:    addr,
		Handler: servernet.NewHTTPHandler(manager, logger),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
