// Package curve implements the locality constraint of the canvas addressing
// scheme.
//
// Tile IDs are positions along a Hilbert space-filling curve; a tile's
// canonical coordinate is its curve cell scaled by the ideal spacing. The
// constraint leashes a candidate position to a disc around that canonical
// coordinate, so bond-driven forces can move a tile only so far from its
// addressing neighborhood.
package curve

import (
	"math"
	"sort"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

// hilbertOrder gives a 2^16 x 2^16 grid, enough for 2^32 tile addresses.
const hilbertOrder = 16

// Locality maps tile IDs to canonical curve positions and constrains
// candidate positions toward them.
type Locality struct {
	spacing  float64
	strength float64
}

// NewLocality creates a constraint with the given ideal spacing and
// strength. Strength 0 disables the constraint entirely; strength 1 pins
// every tile to its canonical position.
func NewLocality(spacing, strength float64) *Locality {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return &Locality{spacing: spacing, strength: strength}
}

// Strength reports the configured constraint strength.
func (l *Locality) Strength() float64 { return l.strength }

// Canonical returns the tile's canonical position on the curve, in canvas
// units.
func (l *Locality) Canonical(t canvas.TileID) canvas.Coord {
	x, y := d2xy(hilbertOrder, uint64(t)%(1<<(2*hilbertOrder)))
	return canvas.Coord{X: float64(x) * l.spacing, Y: float64(y) * l.spacing}
}

// Constrain projects candidate onto the leash disc around the tile's
// canonical position. The projection is idempotent: constraining its own
// output again returns the same coordinate.
func (l *Locality) Constrain(t canvas.TileID, candidate canvas.Coord) canvas.Coord {
	if l.strength <= 0 {
		return candidate
	}
	anchor := l.Canonical(t)
	if l.strength >= 1 {
		return anchor
	}
	// Leash radius grows without bound as strength approaches zero and
	// shrinks to zero as it approaches one.
	radius := l.spacing * (1/l.strength - 1)
	dx, dy := candidate.X-anchor.X, candidate.Y-anchor.Y
	dist := math.Hypot(dx, dy)
	// The tolerance accepts points the projection itself placed an ulp
	// outside the disc; without it, constraining twice could move the
	// point again.
	if dist <= radius*(1+1e-12) {
		return candidate
	}
	scale := radius / dist
	return canvas.Coord{X: anchor.X + dx*scale, Y: anchor.Y + dy*scale}
}

// PreservationScore measures, in [0,1], how much of the canonical curve
// adjacency ordering the current geometric arrangement still observes. For
// each consecutive pair of known tiles in curve order, the pair counts as
// preserved when its geometric distance is within twice the spacing scaled
// by the square root of the ID gap (curve distance n maps to geometric
// distance on the order of sqrt(n)).
//
// This is an observability metric only; the solver never consults it.
func (l *Locality) PreservationScore(positions map[canvas.TileID]canvas.Coord) float64 {
	if len(positions) < 2 {
		return 1
	}
	ids := make([]canvas.TileID, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	preserved := 0
	total := 0
	for i := 1; i < len(ids); i++ {
		prev, cur := ids[i-1], ids[i]
		gap := float64(cur - prev)
		limit := 2 * l.spacing * math.Sqrt(gap)
		if positions[prev].Distance(positions[cur]) <= limit {
			preserved++
		}
		total++
	}
	return float64(preserved) / float64(total)
}

// d2xy converts a distance along the Hilbert curve of the given order into
// grid coordinates.
func d2xy(order int, d uint64) (uint64, uint64) {
	var x, y uint64
	t := d
	for s := uint64(1); s < 1<<order; s <<= 1 {
		rx := 1 & (t / 2)
		ry := 1 & (t ^ rx)
		x, y = rot(s, x, y, rx, ry)
		x += s * rx
		y += s * ry
		t /= 4
	}
	return x, y
}

// rot rotates or reflects a quadrant as required by the Hilbert ordering.
func rot(n, x, y, rx, ry uint64) (uint64, uint64) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		x, y = y, x
	}
	return x, y
}
