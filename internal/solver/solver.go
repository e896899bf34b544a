// Package solver implements the annealed force-directed pass that turns
// bonds and current positions into candidate new positions.
//
// The algorithm is a deterministic Fruchterman-Reingold variant: bonded
// pairs attract toward a strength-dependent resting distance, every pair
// repels to prevent collapse, and per-step displacement is capped jointly by
// an annealing temperature and a configured maximum. The O(n^2) repulsion
// pass is an accepted ceiling for modest tile counts.
package solver

import (
	"math"
	"sort"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
	"github.com/tdw419/geometry-os-sub002/internal/curve"
)

// Defaults for the annealing schedule.
const (
	DefaultIterations = 100
	defaultCooling    = 0.95
	defaultTempFloor  = 0.01
	// minSeparation guards the repulsion and direction math against
	// coincident tiles.
	minSeparation = 0.01
)

// Params configures one solve pass.
type Params struct {
	// IdealSpacing is the baseline resting distance k between tiles.
	IdealSpacing float64
	// MaxDisplacement caps per-iteration movement independently of the
	// annealing temperature. The configured value is honored as-is: the
	// source system additionally rescaled it against a hard 1.0 ceiling,
	// which capped every step near one canvas unit regardless of
	// configuration. That rescale is corrected here, not preserved.
	MaxDisplacement float64
	// Iterations is the number of annealing iterations; DefaultIterations
	// when zero.
	Iterations int
	// CoolingFactor multiplies the temperature each iteration; a sensible
	// default is applied when zero.
	CoolingFactor float64
}

func (p Params) withDefaults() Params {
	if p.Iterations <= 0 {
		p.Iterations = DefaultIterations
	}
	if p.CoolingFactor <= 0 || p.CoolingFactor >= 1 {
		p.CoolingFactor = defaultCooling
	}
	return p
}

// IdealDistance returns the resting distance for a bond of the given
// strength: stronger bonds target a tighter distance than the baseline
// spacing.
func IdealDistance(k, strength float64) float64 {
	return k * (1 - strength*0.5)
}

// Solve runs the annealed force-directed pass and returns candidate
// positions for every tile in positions. It is a pure function: inputs are
// never mutated, no tile is dropped, and identical inputs produce
// bit-identical output (tiles and pairs are visited in sorted ID order).
func Solve(positions map[canvas.TileID]canvas.Coord, bonds []canvas.Bond, loc *curve.Locality, params Params) map[canvas.TileID]canvas.Coord {
	params = params.withDefaults()
	k := params.IdealSpacing

	ids := make([]canvas.TileID, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pos := make(map[canvas.TileID]canvas.Coord, len(positions))
	for id, c := range positions {
		pos[id] = c
	}
	if len(ids) < 2 {
		return pos
	}

	// Only bonds whose endpoints are both known can exert force.
	springs := make([]canvas.Bond, 0, len(bonds))
	for _, b := range bonds {
		if _, ok := pos[b.Source]; !ok {
			continue
		}
		if _, ok := pos[b.Dest]; !ok {
			continue
		}
		springs = append(springs, b)
	}
	sort.Slice(springs, func(i, j int) bool {
		return canvas.Pair{A: springs[i].Source, B: springs[i].Dest}.
			Less(canvas.Pair{A: springs[j].Source, B: springs[j].Dest})
	})

	temperature := k * 0.5
	disp := make(map[canvas.TileID]canvas.Coord, len(ids))

	for iter := 0; iter < params.Iterations && temperature >= defaultTempFloor; iter++ {
		for _, id := range ids {
			disp[id] = canvas.Coord{}
		}

		// Repulsion between every pair, bonded or not.
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				u, v := ids[i], ids[j]
				dx := pos[u].X - pos[v].X
				dy := pos[u].Y - pos[v].Y
				dist := math.Hypot(dx, dy)
				if dist < minSeparation {
					dist = minSeparation
					// Coincident tiles separate along the x axis; the
					// direction only needs to be deterministic.
					dx, dy = minSeparation, 0
				}
				force := k * k / dist
				ux, uy := dx/dist, dy/dist
				du, dv := disp[u], disp[v]
				du.X += ux * force
				du.Y += uy * force
				dv.X -= ux * force
				dv.Y -= uy * force
				disp[u], disp[v] = du, dv
			}
		}

		// Attraction along bonds, toward the strength-dependent resting
		// distance.
		for _, b := range springs {
			dx := pos[b.Dest].X - pos[b.Source].X
			dy := pos[b.Dest].Y - pos[b.Source].Y
			dist := math.Hypot(dx, dy)
			if dist < minSeparation {
				continue
			}
			ideal := IdealDistance(k, b.Strength)
			stretch := dist - ideal
			force := stretch * stretch / k
			if stretch < 0 {
				// Compressed below resting distance: the spring pushes
				// apart instead of pulling together.
				force = -force
			}
			ux, uy := dx/dist, dy/dist
			ds, dd := disp[b.Source], disp[b.Dest]
			ds.X += ux * force
			ds.Y += uy * force
			dd.X -= ux * force
			dd.Y -= uy * force
			disp[b.Source], disp[b.Dest] = ds, dd
		}

		// Apply displacements, capped by temperature and the configured
		// maximum, then leash to the addressing curve.
		limit := temperature
		if params.MaxDisplacement > 0 && params.MaxDisplacement < limit {
			limit = params.MaxDisplacement
		}
		for _, id := range ids {
			d := disp[id]
			mag := math.Hypot(d.X, d.Y)
			if mag < minSeparation {
				continue
			}
			step := math.Min(mag, limit)
			next := canvas.Coord{
				X: pos[id].X + d.X/mag*step,
				Y: pos[id].Y + d.Y/mag*step,
			}
			if loc != nil {
				next = loc.Constrain(id, next)
			}
			pos[id] = next
		}

		temperature *= params.CoolingFactor
	}

	return pos
}
