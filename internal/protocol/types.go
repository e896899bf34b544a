// Package protocol implements the crash-tolerant, at-least-once file
// protocol between the realignment engine and the external proposer.
//
// The two processes share nothing but a state directory. The proposer
// writes a proposal file; this engine polls for it, folds it through the
// same aggregation path as live pulses, and writes back a layout delta and
// a status summary. All writes are atomic (temp file + rename) so the
// counterpart may poll at arbitrary times; repeated delivery of the same
// proposal ID is a recognized no-op rather than an error, which stands in
// for file locking.
package protocol

import (
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

// File names inside the shared state directory.
const (
	ProposalFileName = "tectonic_proposal.json"
	DeltaFileName    = "layout_delta.json"
	StatusFileName   = "tectonic_status.json"
)

// FormatVersion is the wire format version stamped on every message.
const FormatVersion = "1"

// Proposal is an externally authored layout proposal: a pre-scored bond
// list this engine folds into its own aggregation window.
type Proposal struct {
	Version             string         `json:"version"`
	ID                  string         `json:"id"`
	Bonds               []ProposalBond `json:"bonds"`
	ExpectedImprovement float64        `json:"expected_improvement"`
	PulseCount          int            `json:"pulse_count"`
	TimestampMS         int64          `json:"timestamp_ms"`
}

// ProposalBond is one pre-scored relationship inside a proposal. PulseCount
// and Channel are optional.
type ProposalBond struct {
	Source     canvas.TileID `json:"source"`
	Dest       canvas.TileID `json:"dest"`
	Strength   float64       `json:"strength"`
	Volume     float64       `json:"volume"`
	PulseCount int           `json:"pulse_count,omitempty"`
	Channel    string        `json:"channel,omitempty"`
}

// Delta is the persisted form of a canvas.LayoutDelta.
type Delta struct {
	Version        string     `json:"version"`
	ID             string     `json:"id"`
	TimestampMS    int64      `json:"timestamp_ms"`
	BeforeSaccade  float64    `json:"before_saccade"`
	AfterSaccade   float64    `json:"after_saccade"`
	ImprovementPct float64    `json:"improvement_pct"`
	Movements      []Movement `json:"movements"`
}

// Movement is one tile's repositioning inside a persisted delta.
type Movement struct {
	Tile        canvas.TileID `json:"tile"`
	From        canvas.Coord  `json:"from"`
	To          canvas.Coord  `json:"to"`
	Delta       float64       `json:"delta"`
	SaccadeGain float64       `json:"saccade_gain"`
}

// Status is the engine's persisted status summary.
type Status struct {
	Version           string      `json:"version"`
	State             string      `json:"state"`
	LastProposalID    string      `json:"last_proposal_id,omitempty"`
	CycleCount        int         `json:"cycle_count"`
	StrongestBond     *StatusBond `json:"strongest_bond,omitempty"`
	LastRealignMS     int64       `json:"last_realign_ms,omitempty"`
	LastMovementCount int         `json:"last_movement_count"`
	PreservationScore float64     `json:"preservation_score"`
	Error             string      `json:"error,omitempty"`
}

// StatusBond describes the strongest bond observed in the cycle.
type StatusBond struct {
	Source     canvas.TileID `json:"source"`
	Dest       canvas.TileID `json:"dest"`
	Strength   float64       `json:"strength"`
	Channel    string        `json:"channel"`
	PulseCount int           `json:"pulse_count"`
}

// deltaMessage converts an in-memory delta to its wire form.
func deltaMessage(d canvas.LayoutDelta) Delta {
	movements := make([]Movement, len(d.Movements))
	for i, m := range d.Movements {
		movements[i] = Movement{
			Tile:        m.Tile,
			From:        m.From,
			To:          m.To,
			Delta:       m.Delta,
			SaccadeGain: m.SaccadeGain,
		}
	}
	return Delta{
		Version:        FormatVersion,
		ID:             d.ID,
		TimestampMS:    d.Timestamp.UnixMilli(),
		BeforeSaccade:  d.BeforeSaccade,
		AfterSaccade:   d.AfterSaccade,
		ImprovementPct: d.ImprovementPct,
		Movements:      movements,
	}
}

// statusBond converts an aggregator bond to its wire form.
func statusBond(b canvas.Bond) *StatusBond {
	return &StatusBond{
		Source:     b.Source,
		Dest:       b.Dest,
		Strength:   b.Strength,
		Channel:    string(b.Channel),
		PulseCount: b.PulseCount,
	}
}

// Realignment is the record handed to a Recorder after each applied cycle.
type Realignment struct {
	Cycle          int
	DeltaID        string
	ProposalID     string
	MovementCount  int
	BeforeSaccade  float64
	AfterSaccade   float64
	ImprovementPct float64
	Preservation   float64
	AppliedAt      time.Time
}

// Recorder receives each applied realignment for durable bookkeeping. The
// SQLite ledger in internal/history implements it.
type Recorder interface {
	RecordRealignment(rec Realignment) error
}
