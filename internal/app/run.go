package app

import (
	"context"
	"errors"
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/ctxlog"
	"github.com/tdw419/geometry-os-sub002/internal/protocol"
)

// Run executes the poll loop until the context is canceled. With Once set
// it performs a single poll and returns.
//
// Each tick is one protocol cycle; a failed poll is logged and the loop
// continues on the next tick. Any further resilience policy (backoff,
// alerting) belongs to the operator.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		a.healthCheckServer()
	}

	a.logger.Info("Tectonic realignment engine started.",
		"state_dir", a.model.Protocol.StateDir,
		"poll_interval", a.model.Protocol.PollInterval,
		"once", a.cfg.Once)

	if a.cfg.Once {
		a.pollOnce(ctx)
		return nil
	}

	ticker := time.NewTicker(a.model.Protocol.PollInterval)
	defer ticker.Stop()

	for {
		a.pollOnce(ctx)
		select {
		case <-ctx.Done():
			a.logger.Info("Shutting down poll loop.")
			return nil
		case <-ticker.C:
		}
	}
}

// pollOnce runs a single protocol cycle, honoring the simulator's readiness
// gate.
func (a *App) pollOnce(ctx context.Context) {
	now := time.Now()
	if !a.simulator.Ready(now) {
		a.logger.Debug("Aggregation window still open, skipping poll.")
		return
	}

	delta, err := a.adapter.Poll(ctx, now)
	switch {
	case errors.Is(err, protocol.ErrNoProposal):
		a.logger.Debug("No proposal file present.")
	case err != nil && delta != nil:
		// The realignment committed; only a downstream sink failed.
		a.logger.Error("Realignment applied with errors.", "error", err)
	case err != nil:
		a.logger.Error("Poll failed.", "error", err)
	case delta == nil:
		a.logger.Debug("Proposal already processed.")
	}
}
