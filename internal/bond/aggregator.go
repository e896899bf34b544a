// Package bond folds windowed pulses into weighted, undirected relationships
// between tile pairs.
//
// The aggregator has per-cycle reset semantics: Clear wipes all accumulated
// state, so a bond's strength reflects only what happened since the last
// realignment cycle. There is no rolling decay.
package bond

import (
	"sort"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

// volumePerFullStrength is the accumulated pulse volume at which a bond
// saturates at strength 1.0.
const volumePerFullStrength = 10.0

// edge is the internal accumulator for one unordered tile pair.
type edge struct {
	pair            canvas.Pair
	volume          float64
	cognitiveVolume float64
	semanticVolume  float64
	pulseCount      int
}

func (e *edge) strength() float64 {
	s := e.volume / volumePerFullStrength
	if s > 1 {
		s = 1
	}
	return s
}

func (e *edge) channel() canvas.BondChannel {
	switch {
	case e.cognitiveVolume > e.semanticVolume:
		return canvas.BondCognitive
	case e.semanticVolume > e.cognitiveVolume:
		return canvas.BondSemantic
	default:
		return canvas.BondMixed
	}
}

func (e *edge) bond() canvas.Bond {
	return canvas.Bond{
		Source:     e.pair.A,
		Dest:       e.pair.B,
		Strength:   e.strength(),
		Channel:    e.channel(),
		PulseCount: e.pulseCount,
		Volume:     e.volume,
	}
}

// Stats summarizes the aggregator's current contents.
type Stats struct {
	Edges       int
	TotalVolume float64
	TotalPulses int
	// ActiveTiles is the number of tiles participating in at least one bond.
	ActiveTiles int
}

// Aggregator accumulates pulses into an undirected weighted bond graph.
// Adjacency is a keyed lookup from tile ID to bonded neighbors, not object
// references. Owned by a single goroutine; no internal locking.
type Aggregator struct {
	edges     map[canvas.Pair]*edge
	neighbors map[canvas.TileID]map[canvas.TileID]struct{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		edges:     make(map[canvas.Pair]*edge),
		neighbors: make(map[canvas.TileID]map[canvas.TileID]struct{}),
	}
}

// Add accumulates one pulse into the edge keyed by its unordered tile pair.
// Self-pulses and non-positive volumes are ignored; they carry no layout
// information.
func (a *Aggregator) Add(ev canvas.PulseEvent) {
	if ev.Source == ev.Dest || ev.Volume <= 0 {
		return
	}
	pair := canvas.NormalizedPair(ev.Source, ev.Dest)
	e, ok := a.edges[pair]
	if !ok {
		e = &edge{pair: pair}
		a.edges[pair] = e
		a.link(pair.A, pair.B)
		a.link(pair.B, pair.A)
	}
	e.volume += ev.Volume
	e.pulseCount++
	switch ev.Channel {
	case canvas.ChannelSemantic:
		e.semanticVolume += ev.Volume
	default:
		e.cognitiveVolume += ev.Volume
	}
}

func (a *Aggregator) link(from, to canvas.TileID) {
	set, ok := a.neighbors[from]
	if !ok {
		set = make(map[canvas.TileID]struct{})
		a.neighbors[from] = set
	}
	set[to] = struct{}{}
}

// Bonds returns a snapshot of all bonds with strength at or above
// minStrength, sorted by tile-pair key for a deterministic order.
func (a *Aggregator) Bonds(minStrength float64) []canvas.Bond {
	out := make([]canvas.Bond, 0, len(a.edges))
	for _, e := range a.edges {
		if e.strength() >= minStrength {
			out = append(out, e.bond())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return canvas.Pair{A: out[i].Source, B: out[i].Dest}.
			Less(canvas.Pair{A: out[j].Source, B: out[j].Dest})
	})
	return out
}

// TopN returns the n strongest bonds, or nil when n is not positive. Ties
// break on higher pulse count first, then on the stable tile-pair key order.
func (a *Aggregator) TopN(n int) []canvas.Bond {
	if n <= 0 {
		return nil
	}
	all := a.Bonds(0)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Strength != all[j].Strength {
			return all[i].Strength > all[j].Strength
		}
		if all[i].PulseCount != all[j].PulseCount {
			return all[i].PulseCount > all[j].PulseCount
		}
		return canvas.Pair{A: all[i].Source, B: all[i].Dest}.
			Less(canvas.Pair{A: all[j].Source, B: all[j].Dest})
	})
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Strongest returns the single strongest bond, if any.
func (a *Aggregator) Strongest() (canvas.Bond, bool) {
	top := a.TopN(1)
	if len(top) == 0 {
		return canvas.Bond{}, false
	}
	return top[0], true
}

// Neighbors returns the tiles bonded to t, in ascending ID order.
func (a *Aggregator) Neighbors(t canvas.TileID) []canvas.TileID {
	set := a.neighbors[t]
	out := make([]canvas.TileID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats reports summary statistics over the current window's bonds.
func (a *Aggregator) Stats() Stats {
	s := Stats{Edges: len(a.edges), ActiveTiles: len(a.neighbors)}
	for _, e := range a.edges {
		s.TotalVolume += e.volume
		s.TotalPulses += e.pulseCount
	}
	return s
}

// Clear wipes all accumulated state. Called once per realignment cycle.
func (a *Aggregator) Clear() {
	a.edges = make(map[canvas.Pair]*edge)
	a.neighbors = make(map[canvas.TileID]map[canvas.TileID]struct{})
}
