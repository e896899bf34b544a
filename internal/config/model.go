package config

import "time"

// Model is the unified, format-agnostic representation of the engine's
// configuration.
type Model struct {
	Engine   Engine
	Protocol Protocol
	History  History
}

// Engine carries the realignment tunables.
type Engine struct {
	// Window is the pulse aggregation window length.
	Window time.Duration
	// MinBondStrength is the weakest bond considered by the solver.
	MinBondStrength float64
	// IdealSpacing is the baseline inter-tile resting distance, in canvas
	// units.
	IdealSpacing float64
	// MaxDisplacement caps per-iteration tile movement during a solve.
	MaxDisplacement float64
	// LocalityStrength is the curve-constraint strength: 0 ignores the
	// addressing curve, 1 pins tiles to it.
	LocalityStrength float64
	// MinMovement is the significance threshold below which movements are
	// omitted from a delta.
	MinMovement float64
}

// Protocol configures the file-based exchange with the external proposer.
type Protocol struct {
	// StateDir is the shared directory holding proposal, delta, and status
	// files.
	StateDir string
	// PollInterval is how often the adapter checks for a new proposal.
	PollInterval time.Duration
}

// History configures the optional realignment ledger.
type History struct {
	// Path is the SQLite database file; empty disables the ledger.
	Path string
}

// Default returns a Model populated with the engine's defaults. Loaders
// start from this and overlay whatever the configuration file provides.
func Default() *Model {
	return &Model{
		Engine: Engine{
			Window:           5 * time.Second,
			MinBondStrength:  0.1,
			IdealSpacing:     100,
			MaxDisplacement:  50,
			LocalityStrength: 0.25,
			MinMovement:      0.5,
		},
		Protocol: Protocol{
			StateDir:     "state",
			PollInterval: time.Second,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (m *Model) Validate() error {
	switch {
	case m.Engine.Window <= 0:
		return errValidation("engine.window_ms must be positive")
	case m.Engine.IdealSpacing <= 0:
		return errValidation("engine.ideal_spacing must be positive")
	case m.Engine.MaxDisplacement <= 0:
		return errValidation("engine.max_displacement must be positive")
	case m.Engine.MinBondStrength < 0 || m.Engine.MinBondStrength > 1:
		return errValidation("engine.min_bond_strength must be in [0,1]")
	case m.Engine.LocalityStrength < 0 || m.Engine.LocalityStrength > 1:
		return errValidation("engine.locality_strength must be in [0,1]")
	case m.Engine.MinMovement < 0:
		return errValidation("engine.min_movement must not be negative")
	case m.Protocol.StateDir == "":
		return errValidation("protocol.state_dir must not be empty")
	case m.Protocol.PollInterval <= 0:
		return errValidation("protocol.poll_interval_ms must be positive")
	}
	return nil
}

type errValidation string

func (e errValidation) Error() string { return string(e) }
