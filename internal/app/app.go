// Package app provides the top-level application lifecycle for polyscreen. It
// wires the fetcher, snapshot backend, table service, notifications and HTTP
// server together and runs the configured mode.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/config"
)

// ScreenOptions controls the output of screen mode.
type ScreenOptions struct {
	// Format is "table" or "json".
	Format  string
	SortKey string
	Limit   int
	Out     io.Writer
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	screen  ScreenOptions
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger, screen ScreenOptions) *App {
	if screen.Out == nil {
		screen.Out = os.Stdout
	}
	if screen.Format == "" {
		screen.Format = "table"
	}
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		screen: screen,
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode and blocks until the mode finishes or the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.String("snapshot_backend", a.cfg.Snapshot.Backend),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "serve":
		return a.ServeMode(ctx, deps)
	case "fetch":
		return a.FetchMode(ctx, deps)
	case "screen":
		return a.ScreenMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
