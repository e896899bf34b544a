package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
	"github.com/tdw419/geometry-os-sub002/internal/ctxlog"
	"github.com/tdw419/geometry-os-sub002/internal/fsutil"
	"github.com/tdw419/geometry-os-sub002/internal/sim"
)

// ErrNoProposal reports that no proposal file exists yet. It is a quiescent
// condition, not a failure; the poll loop treats it as "nothing to do".
var ErrNoProposal = errors.New("no proposal file present")

// defaultSubPulses is how many synthetic pulses a proposal bond is split
// into when the proposal does not carry its own pulse count.
const defaultSubPulses = 4

// Adapter is a stateless-on-disk poll loop around the file protocol. It
// remembers only the last processed proposal ID, which makes repeated
// delivery of the same proposal a silent no-op and the whole exchange
// tolerant of at-least-once delivery.
//
// The adapter owns no retry policy: filesystem errors propagate verbatim
// and the caller decides on backoff.
type Adapter struct {
	stateDir string
	sim      *sim.Simulator
	recorder Recorder

	lastProposalID string
}

// NewAdapter creates an adapter over the shared state directory. The
// recorder may be nil, disabling the history ledger.
func NewAdapter(stateDir string, simulator *sim.Simulator, recorder Recorder) *Adapter {
	return &Adapter{stateDir: stateDir, sim: simulator, recorder: recorder}
}

// LastProposalID reports the ID of the last proposal folded into the
// engine; empty if none yet.
func (a *Adapter) LastProposalID() string { return a.lastProposalID }

// Poll performs one protocol cycle: read the proposal file, and if it names
// a proposal not yet processed, fold it through the live aggregation path,
// realign, and persist the delta and status.
//
// Returns (nil, ErrNoProposal) when no proposal file exists, (nil, nil) for
// a duplicate proposal, and the applied delta otherwise. A parse failure
// skips the proposal without partial processing.
func (a *Adapter) Poll(ctx context.Context, now time.Time) (*canvas.LayoutDelta, error) {
	logger := ctxlog.FromContext(ctx)

	proposal, err := a.readProposal()
	if err != nil {
		if !errors.Is(err, ErrNoProposal) {
			a.writeStatusBestEffort(ctx, err.Error())
		}
		return nil, err
	}

	if proposal.ID == a.lastProposalID {
		logger.Debug("Duplicate proposal, skipping.", "proposal_id", proposal.ID)
		return nil, nil
	}
	ctx = ctxlog.With(ctx, "proposal_id", proposal.ID)
	logger = ctxlog.FromContext(ctx)
	logger.Info("New proposal received.",
		"bonds", len(proposal.Bonds),
		"expected_improvement", proposal.ExpectedImprovement)

	a.foldProposal(proposal, now)

	delta := a.sim.ComputeDelta(now)
	strongest, hasStrongest := a.sim.Aggregator().Strongest()

	applyErr := a.sim.ApplyDelta(ctx, delta)
	// Positions are committed even when the snapshot sink failed; the
	// proposal counts as processed either way.
	a.lastProposalID = proposal.ID

	if err := a.writeDelta(delta); err != nil {
		return &delta, err
	}

	status := Status{
		Version:           FormatVersion,
		State:             string(a.sim.StateLabel()),
		LastProposalID:    a.lastProposalID,
		CycleCount:        a.sim.CycleCount(),
		LastRealignMS:     a.sim.LastRealign().UnixMilli(),
		LastMovementCount: len(delta.Movements),
		PreservationScore: a.sim.PreservationScore(),
	}
	if hasStrongest {
		status.StrongestBond = statusBond(strongest)
	}
	if applyErr != nil {
		status.Error = applyErr.Error()
	}
	if err := a.WriteStatus(status); err != nil {
		return &delta, err
	}

	if a.recorder != nil {
		rec := Realignment{
			Cycle:          a.sim.CycleCount(),
			DeltaID:        delta.ID,
			ProposalID:     proposal.ID,
			MovementCount:  len(delta.Movements),
			BeforeSaccade:  delta.BeforeSaccade,
			AfterSaccade:   delta.AfterSaccade,
			ImprovementPct: delta.ImprovementPct,
			Preservation:   status.PreservationScore,
			AppliedAt:      delta.Timestamp,
		}
		if err := a.recorder.RecordRealignment(rec); err != nil {
			return &delta, fmt.Errorf("recording realignment history: %w", err)
		}
	}

	logger.Info("Realignment applied.",
		"cycle", a.sim.CycleCount(),
		"movements", len(delta.Movements),
		"improvement_pct", delta.ImprovementPct)
	return &delta, applyErr
}

// foldProposal converts the proposal's pre-scored bonds into synthetic
// pulses and feeds them through the same aggregation path as live
// telemetry. Tiles the engine does not know yet are seeded at their
// canonical curve position first; the engine itself never invents
// identities.
func (a *Adapter) foldProposal(p *Proposal, now time.Time) {
	for _, b := range p.Bonds {
		if b.Source == b.Dest {
			continue
		}
		for _, t := range []canvas.TileID{b.Source, b.Dest} {
			if !a.sim.KnowsTile(t) {
				a.sim.SeedTile(t, a.sim.Locality().Canonical(t))
			}
		}

		volume := b.Volume
		if volume <= 0 {
			// Fall back to the pre-scored strength: a fully saturated bond
			// corresponds to ten units of volume.
			volume = b.Strength * 10
		}
		if volume <= 0 {
			continue
		}

		subPulses := b.PulseCount
		if subPulses <= 0 {
			subPulses = defaultSubPulses
		}
		channel := canvas.ChannelCognitive
		if b.Channel == string(canvas.ChannelSemantic) {
			channel = canvas.ChannelSemantic
		}

		per := volume / float64(subPulses)
		for i := 0; i < subPulses; i++ {
			a.sim.RecordPulse(canvas.PulseEvent{
				Source:    b.Source,
				Dest:      b.Dest,
				Channel:   channel,
				Volume:    per,
				Timestamp: now,
			})
		}
	}
}

// readProposal loads and parses the proposal file.
func (a *Adapter) readProposal() (*Proposal, error) {
	path := filepath.Join(a.stateDir, ProposalFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoProposal
		}
		return nil, fmt.Errorf("reading proposal file: %w", err)
	}
	var p Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed proposal file %s: %w", path, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("malformed proposal file %s: missing id", path)
	}
	return &p, nil
}

// writeDelta persists the layout delta atomically.
func (a *Adapter) writeDelta(delta canvas.LayoutDelta) error {
	data, err := json.MarshalIndent(deltaMessage(delta), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding layout delta: %w", err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(a.stateDir, DeltaFileName), data)
}

// WriteStatus persists the status summary atomically.
func (a *Adapter) WriteStatus(status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(a.stateDir, StatusFileName), data)
}

// CurrentStatus builds a status summary from the simulator's present state,
// with the optional error message set. Used by the poll loop to surface
// failures without a completed cycle.
func (a *Adapter) CurrentStatus(errMsg string) Status {
	status := Status{
		Version:           FormatVersion,
		State:             string(a.sim.StateLabel()),
		LastProposalID:    a.lastProposalID,
		CycleCount:        a.sim.CycleCount(),
		PreservationScore: a.sim.PreservationScore(),
		Error:             errMsg,
	}
	if !a.sim.LastRealign().IsZero() {
		status.LastRealignMS = a.sim.LastRealign().UnixMilli()
	}
	if strongest, ok := a.sim.Aggregator().Strongest(); ok {
		status.StrongestBond = statusBond(strongest)
	}
	return status
}

func (a *Adapter) writeStatusBestEffort(ctx context.Context, errMsg string) {
	if err := a.WriteStatus(a.CurrentStatus(errMsg)); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to write error status.", "error", err)
	}
}
