// Package app provides top-level lifecycle management for the trading
// simulator: it wires the dependency graph, runs the HTTP server and the
// WebSocket hub, and orchestrates graceful shutdown with a final state
// snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drolelabs/drole/internal/config"
)

// shutdownTimeout bounds graceful HTTP shutdown and the final snapshot.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the server and hub goroutines, and
// blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("persistence", a.cfg.Persistence.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := deps.Hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return deps.Server.Start()
	})

	// Shutdown sequence: stop the simulator, drain the HTTP server, write
	// a final snapshot, and archive it when configured.
	g.Go(func() error {
		<-gctx.Done()

		deps.Simulator.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := deps.Server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("server shutdown", slog.String("error", err.Error()))
		}

		deps.Snapshot.Save()

		if deps.Archiver != nil {
			path, err := deps.Archiver.Archive(shutdownCtx)
			if err != nil {
				a.logger.Warn("final archive failed", slog.String("error", err.Error()))
			} else {
				a.logger.Info("state archived", slog.String("path", path))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
