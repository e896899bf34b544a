// Package sim holds the realignment engine's orchestrator: tile positions,
// cycle state, and the aggregate -> solve -> apply loop.
//
// The simulator is designed for single-owner, single-threaded mutation. One
// logical owner is the only writer of positions, the aggregator, and the
// cycle counter; callers that share it across goroutines must serialize
// access externally.
package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tdw419/geometry-os-sub002/internal/bond"
	"github.com/tdw419/geometry-os-sub002/internal/canvas"
	"github.com/tdw419/geometry-os-sub002/internal/curve"
	"github.com/tdw419/geometry-os-sub002/internal/pulse"
	"github.com/tdw419/geometry-os-sub002/internal/solver"
)

// State labels the simulator's position in the realignment cycle.
type State string

const (
	StateIdle        State = "idle"
	StateAggregating State = "aggregating"
	StateSolving     State = "solving"
	StateApplying    State = "applying"
)

// Config carries the engine's tunables.
type Config struct {
	// Window is the aggregation window length.
	Window time.Duration
	// MinBondStrength is the weakest bond the solver considers.
	MinBondStrength float64
	// IdealSpacing is the baseline inter-tile resting distance.
	IdealSpacing float64
	// MaxDisplacement caps per-iteration movement during a solve.
	MaxDisplacement float64
	// LocalityStrength is the curve-constraint strength in [0,1].
	LocalityStrength float64
	// MinMovement is the significance threshold below which a tile's
	// movement is omitted from a delta, to avoid visual thrash.
	MinMovement float64
}

// Simulator drives aggregation, solving, and application of layout deltas.
// Tile positions are the only durable state held across cycles, and they
// mutate only through ApplyDelta.
type Simulator struct {
	cfg        Config
	window     *pulse.Window
	aggregator *bond.Aggregator
	locality   *curve.Locality
	snapshots  Snapshotter

	positions   map[canvas.TileID]canvas.Coord
	state       State
	cycleCount  int
	lastRealign time.Time
}

// New creates a simulator. The snapshotter may be nil, in which case apply
// skips the observability emission.
func New(cfg Config, snapshots Snapshotter) *Simulator {
	return &Simulator{
		cfg:        cfg,
		window:     pulse.NewWindow(cfg.Window),
		aggregator: bond.NewAggregator(),
		locality:   curve.NewLocality(cfg.IdealSpacing, cfg.LocalityStrength),
		snapshots:  snapshots,
		positions:  make(map[canvas.TileID]canvas.Coord),
		state:      StateIdle,
	}
}

// Locality exposes the curve constraint, so callers can seed new tiles at
// their canonical positions.
func (s *Simulator) Locality() *curve.Locality { return s.locality }

// Aggregator exposes bond queries for status reporting.
func (s *Simulator) Aggregator() *bond.Aggregator { return s.aggregator }

// RecordPulse feeds one interaction event into the window and the
// aggregator. Purely additive; no other side effects.
func (s *Simulator) RecordPulse(ev canvas.PulseEvent) {
	s.window.Push(ev, ev.Timestamp)
	s.aggregator.Add(ev)
	if s.state == StateIdle {
		s.state = StateAggregating
	}
}

// SeedTile sets or updates a tile's position. This is the only way new tile
// identities enter the engine; it never invents them on its own.
func (s *Simulator) SeedTile(t canvas.TileID, pos canvas.Coord) {
	s.positions[t] = pos
}

// KnowsTile reports whether the tile has been seeded.
func (s *Simulator) KnowsTile(t canvas.TileID) bool {
	_, ok := s.positions[t]
	return ok
}

// Positions returns a copy of the current tile positions.
func (s *Simulator) Positions() map[canvas.TileID]canvas.Coord {
	out := make(map[canvas.TileID]canvas.Coord, len(s.positions))
	for id, c := range s.positions {
		out[id] = c
	}
	return out
}

// StateLabel reports the current cycle state.
func (s *Simulator) StateLabel() State { return s.state }

// CycleCount reports how many deltas have been applied.
func (s *Simulator) CycleCount() int { return s.cycleCount }

// LastRealign reports when the last delta was applied; zero if never.
func (s *Simulator) LastRealign() time.Time { return s.lastRealign }

// PreservationScore reports how well current positions preserve the curve
// adjacency ordering.
func (s *Simulator) PreservationScore() float64 {
	return s.locality.PreservationScore(s.positions)
}

// Ready reports whether a new cycle may start: true when no cycle has ever
// run, or when the time since the last cycle meets the aggregation window.
func (s *Simulator) Ready(now time.Time) bool {
	if s.lastRealign.IsZero() {
		return true
	}
	return now.Sub(s.lastRealign) >= s.cfg.Window
}

// SaccadeDistance is the bond-strength-weighted sum of geometric distances
// between bonded tiles under the given positions; a proxy for
// visual-attention travel cost, where lower is better. Bonds with an
// unseeded endpoint contribute nothing.
func SaccadeDistance(positions map[canvas.TileID]canvas.Coord, bonds []canvas.Bond) float64 {
	var total float64
	for _, b := range bonds {
		from, ok := positions[b.Source]
		if !ok {
			continue
		}
		to, ok := positions[b.Dest]
		if !ok {
			continue
		}
		total += b.Strength * from.Distance(to)
	}
	return total
}

// tileSaccade is the saccade contribution of a single tile's incident bonds.
func tileSaccade(t canvas.TileID, positions map[canvas.TileID]canvas.Coord, bonds []canvas.Bond) float64 {
	var total float64
	for _, b := range bonds {
		if b.Source != t && b.Dest != t {
			continue
		}
		from, ok := positions[b.Source]
		if !ok {
			continue
		}
		to, ok := positions[b.Dest]
		if !ok {
			continue
		}
		total += b.Strength * from.Distance(to)
	}
	return total
}

// ComputeDelta aggregates current bonds, captures the before saccade
// distance, runs the solver, and returns the resulting delta. It mutates no
// held layout state; an empty engine yields an empty delta.
func (s *Simulator) ComputeDelta(now time.Time) canvas.LayoutDelta {
	prev := s.state
	s.state = StateSolving
	defer func() { s.state = prev }()

	bonds := s.aggregator.Bonds(s.cfg.MinBondStrength)
	before := SaccadeDistance(s.positions, bonds)

	solved := solver.Solve(s.positions, bonds, s.locality, solver.Params{
		IdealSpacing:    s.cfg.IdealSpacing,
		MaxDisplacement: s.cfg.MaxDisplacement,
	})
	after := SaccadeDistance(solved, bonds)

	ids := make([]canvas.TileID, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	movements := make([]canvas.TileMovement, 0, len(ids))
	for _, id := range ids {
		from := s.positions[id]
		to := solved[id]
		delta := from.Distance(to)
		if delta < s.cfg.MinMovement {
			continue
		}
		tileBefore := tileSaccade(id, s.positions, bonds)
		tileAfter := tileSaccade(id, solved, bonds)
		movements = append(movements, canvas.TileMovement{
			Tile:        id,
			From:        from,
			To:          to,
			Delta:       delta,
			SaccadeGain: canvas.ImprovementPct(tileBefore, tileAfter),
		})
	}

	return canvas.LayoutDelta{
		ID:             uuid.NewString(),
		Movements:      movements,
		Timestamp:      now,
		BeforeSaccade:  before,
		AfterSaccade:   after,
		ImprovementPct: canvas.ImprovementPct(before, after),
	}
}

// ApplyDelta commits a previously computed delta. It is the only operation
// that mutates tile positions. Afterward it increments the cycle counter,
// clears the aggregator and window to start a fresh aggregation window, and
// emits a best-effort snapshot.
//
// A snapshot failure is returned for alerting but never rolls back the
// already-applied position changes; layout mutation and observability are
// deliberately not transactional with each other.
func (s *Simulator) ApplyDelta(ctx context.Context, delta canvas.LayoutDelta) error {
	s.state = StateApplying
	defer func() { s.state = StateIdle }()

	for _, m := range delta.Movements {
		s.positions[m.Tile] = m.To
	}
	s.cycleCount++
	s.lastRealign = delta.Timestamp
	s.aggregator.Clear()
	s.window.Clear()

	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.WriteSnapshot(ctx, s.snapshot(delta)); err != nil {
		return fmt.Errorf("layout applied, but snapshot emission failed: %w", err)
	}
	return nil
}

func (s *Simulator) snapshot(delta canvas.LayoutDelta) Snapshot {
	return Snapshot{
		Cycle:          s.cycleCount,
		Positions:      s.Positions(),
		MovementCount:  len(delta.Movements),
		ImprovementPct: delta.ImprovementPct,
		Preservation:   s.PreservationScore(),
		Taken:          delta.Timestamp,
	}
}
