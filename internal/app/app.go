// Package app wires the realignment engine together: logger, configuration,
// simulator, protocol adapter, optional history ledger, and the poll loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/tdw419/geometry-os-sub002/internal/config"
	"github.com/tdw419/geometry-os-sub002/internal/ctxlog"
	"github.com/tdw419/geometry-os-sub002/internal/history"
	"github.com/tdw419/geometry-os-sub002/internal/protocol"
	"github.com/tdw419/geometry-os-sub002/internal/sim"
)

// App encapsulates the engine's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	model  *config.Model

	simulator *sim.Simulator
	adapter   *protocol.Adapter
	ledger    *history.Ledger

	httpServer *http.Server
	ctx        context.Context
}

// NewApp is the constructor for the engine. It returns a fully initialized
// App instance with its own isolated logger. Configuration failures are
// fatal startup errors and panic; main recovers them into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var paths []string
	if appConfig.ConfigPath != "" {
		paths = append(paths, appConfig.ConfigPath)
	}
	model, err := loader.Load(ctx, paths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	// CLI flags override the file-sourced model.
	if appConfig.StateDir != "" {
		model.Protocol.StateDir = appConfig.StateDir
	}
	if appConfig.PollInterval > 0 {
		model.Protocol.PollInterval = appConfig.PollInterval
	}
	if appConfig.HistoryPath != "" {
		model.History.Path = appConfig.HistoryPath
	}
	if err := model.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	logger.Debug("Configuration loaded and validated.",
		"state_dir", model.Protocol.StateDir,
		"window", model.Engine.Window,
		"poll_interval", model.Protocol.PollInterval)

	if err := os.MkdirAll(model.Protocol.StateDir, 0o755); err != nil {
		panic(fmt.Errorf("failed to create state directory: %w", err))
	}

	var ledger *history.Ledger
	if model.History.Path != "" {
		ledger, err = history.Open(model.History.Path)
		if err != nil {
			panic(fmt.Errorf("failed to open history ledger: %w", err))
		}
		logger.Debug("History ledger opened.", "path", model.History.Path)
	}

	simulator := sim.New(sim.Config{
		Window:           model.Engine.Window,
		MinBondStrength:  model.Engine.MinBondStrength,
		IdealSpacing:     model.Engine.IdealSpacing,
		MaxDisplacement:  model.Engine.MaxDisplacement,
		LocalityStrength: model.Engine.LocalityStrength,
		MinMovement:      model.Engine.MinMovement,
	}, sim.NewFileSnapshotter(model.Protocol.StateDir))

	var recorder protocol.Recorder
	if ledger != nil {
		recorder = ledger
	}
	adapter := protocol.NewAdapter(model.Protocol.StateDir, simulator, recorder)

	return &App{
		outW:      outW,
		logger:    logger,
		cfg:       appConfig,
		model:     model,
		simulator: simulator,
		adapter:   adapter,
		ledger:    ledger,
		ctx:       ctx,
	}
}

// Simulator returns the engine's simulator. This is primarily for testing.
func (a *App) Simulator() *sim.Simulator {
	return a.simulator
}

// Adapter returns the engine's protocol adapter. This is primarily for testing.
func (a *App) Adapter() *protocol.Adapter {
	return a.adapter
}

// Close releases resources held by the app.
func (a *App) Close() error {
	var firstErr error
	if err := a.closeHealthCheckServer(); err != nil {
		firstErr = err
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
