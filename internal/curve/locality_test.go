package curve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

func TestCanonicalFollowsCurveAdjacency(t *testing.T) {
	l := NewLocality(100, 0.5)

	// Consecutive curve addresses map to grid-adjacent cells, so canonical
	// positions of consecutive tiles are exactly one spacing apart.
	for id := canvas.TileID(0); id < 256; id++ {
		a := l.Canonical(id)
		b := l.Canonical(id + 1)
		assert.InDelta(t, 100.0, a.Distance(b), 1e-9, "ids %d and %d", id, id+1)
	}
}

func TestCanonicalIsStable(t *testing.T) {
	l := NewLocality(100, 0.5)
	first := l.Canonical(12345)
	assert.Equal(t, first, l.Canonical(12345))
}

func TestConstrainIdempotent(t *testing.T) {
	for _, strength := range []float64{0, 0.2, 0.5, 0.8, 1} {
		l := NewLocality(100, strength)
		candidate := canvas.Coord{X: 90000, Y: -50000}

		once := l.Constrain(7, candidate)
		twice := l.Constrain(7, once)
		assert.Equal(t, once, twice, "strength %v", strength)
	}

	t.Run("random candidates", func(t *testing.T) {
		// The projection must stay fixed even when rounding lands its own
		// output an ulp outside the leash disc.
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 100000; i++ {
			strength := rng.Float64()
			if strength == 0 {
				continue
			}
			l := NewLocality(100, strength)
			id := canvas.TileID(rng.Int63n(1 << 20))
			candidate := canvas.Coord{
				X: (rng.Float64() - 0.5) * 1e6,
				Y: (rng.Float64() - 0.5) * 1e6,
			}

			once := l.Constrain(id, candidate)
			twice := l.Constrain(id, once)
			require.Equal(t, once, twice,
				"strength=%v id=%d candidate=%+v", strength, id, candidate)
		}
	})
}

func TestConstrainStrengthExtremes(t *testing.T) {
	t.Run("zero strength ignores the curve", func(t *testing.T) {
		l := NewLocality(100, 0)
		candidate := canvas.Coord{X: 12345, Y: -9}
		assert.Equal(t, candidate, l.Constrain(3, candidate))
	})

	t.Run("full strength pins to canonical", func(t *testing.T) {
		l := NewLocality(100, 1)
		got := l.Constrain(3, canvas.Coord{X: 12345, Y: -9})
		assert.Equal(t, l.Canonical(3), got)
	})
}

func TestConstrainLeash(t *testing.T) {
	l := NewLocality(100, 0.5)
	anchor := l.Canonical(0)
	// strength 0.5 with spacing 100 gives a leash radius of 100.
	radius := 100.0

	t.Run("inside the leash is untouched", func(t *testing.T) {
		candidate := canvas.Coord{X: anchor.X + 50, Y: anchor.Y}
		assert.Equal(t, candidate, l.Constrain(0, candidate))
	})

	t.Run("outside the leash is projected onto it", func(t *testing.T) {
		candidate := canvas.Coord{X: anchor.X + 500, Y: anchor.Y}
		got := l.Constrain(0, candidate)
		require.InDelta(t, radius, anchor.Distance(got), 1e-9)
		// The projection keeps the direction from the anchor.
		assert.InDelta(t, anchor.X+radius, got.X, 1e-9)
		assert.InDelta(t, anchor.Y, got.Y, 1e-9)
	})
}

func TestPreservationScoreBounds(t *testing.T) {
	l := NewLocality(100, 0.5)

	t.Run("degenerate arrangements score one", func(t *testing.T) {
		assert.Equal(t, 1.0, l.PreservationScore(nil))
		assert.Equal(t, 1.0, l.PreservationScore(map[canvas.TileID]canvas.Coord{
			5: {X: 1, Y: 2},
		}))
	})

	t.Run("canonical arrangement scores one", func(t *testing.T) {
		positions := make(map[canvas.TileID]canvas.Coord)
		for id := canvas.TileID(0); id < 32; id++ {
			positions[id] = l.Canonical(id)
		}
		assert.Equal(t, 1.0, l.PreservationScore(positions))
	})

	t.Run("scattered arrangement scores low", func(t *testing.T) {
		positions := make(map[canvas.TileID]canvas.Coord)
		for id := canvas.TileID(0); id < 8; id++ {
			positions[id] = canvas.Coord{X: float64(id) * 1e6, Y: 0}
		}
		score := l.PreservationScore(positions)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.Less(t, score, 0.5)
	})
}
