// Package canvas defines the shared vocabulary of the realignment engine:
// tile identity, coordinates, pulse events, bonds, and layout deltas.
//
// Everything here is a plain value type. Positions are only ever changed by
// the simulator applying a LayoutDelta; no type in this package mutates
// anything on its own.
package canvas

import (
	"math"
	"time"
)

// TileID identifies an addressable region on the canvas. IDs are opaque but
// totally ordered; their numeric order is also their position along the
// space-filling addressing curve.
type TileID int64

// Coord is a position on the unbounded 2D canvas, in canvas units.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to other.
func (c Coord) Distance(other Coord) float64 {
	return math.Hypot(c.X-other.X, c.Y-other.Y)
}

// Channel classifies the qualitative kind of an interaction pulse.
type Channel string

const (
	ChannelCognitive Channel = "cognitive"
	ChannelSemantic  Channel = "semantic"
)

// BondChannel is the aggregate classification of a bond, derived from the
// per-channel volume of the pulses that formed it.
type BondChannel string

const (
	BondCognitive BondChannel = "cognitive"
	BondSemantic  BondChannel = "semantic"
	BondMixed     BondChannel = "mixed"
)

// PulseEvent is a single timestamped interaction between two tiles. It is
// immutable once created; the engine only ever reads it.
type PulseEvent struct {
	Source    TileID
	Dest      TileID
	Channel   Channel
	Volume    float64
	Timestamp time.Time
}

// Bond is an aggregated, undirected relationship between two tiles, derived
// from the pulses observed in the current aggregation window. Source < Dest
// always holds, and Strength is always in [0,1].
type Bond struct {
	Source     TileID
	Dest       TileID
	Strength   float64
	Channel    BondChannel
	PulseCount int
	Volume     float64
}

// Other returns the bond endpoint that is not t. It assumes t is one of the
// two endpoints.
func (b Bond) Other(t TileID) TileID {
	if b.Source == t {
		return b.Dest
	}
	return b.Source
}

// Pair is the unordered tile-pair key for a bond: A < B always holds.
type Pair struct {
	A TileID
	B TileID
}

// NormalizedPair builds the canonical key for an unordered tile pair.
func NormalizedPair(a, b TileID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Less orders pairs lexicographically, giving bond listings a stable order.
func (p Pair) Less(other Pair) bool {
	if p.A != other.A {
		return p.A < other.A
	}
	return p.B < other.B
}

// TileMovement is one tile's repositioning within a LayoutDelta.
type TileMovement struct {
	Tile TileID
	From Coord
	To   Coord
	// Delta is the Euclidean distance between From and To.
	Delta float64
	// SaccadeGain is the percentage improvement in this tile's bond-weighted
	// distance to its neighbors. Negative when the move made things worse.
	SaccadeGain float64
}

// LayoutDelta is the immutable result of one solve pass and the sole channel
// through which tile positions change.
type LayoutDelta struct {
	ID        string
	Movements []TileMovement
	Timestamp time.Time
	// BeforeSaccade and AfterSaccade are the bond-weighted total distances
	// around the solve; lower is better.
	BeforeSaccade  float64
	AfterSaccade   float64
	ImprovementPct float64
}

// ImprovementPct computes the canonical improvement percentage for a
// before/after saccade pair: (before-after)/before*100, or 0 when before is
// zero. The result may legitimately be negative.
func ImprovementPct(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (before - after) / before * 100
}
