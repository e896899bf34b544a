package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

func event(src, dst canvas.TileID, at time.Time) canvas.PulseEvent {
	return canvas.PulseEvent{
		Source:    src,
		Dest:      dst,
		Channel:   canvas.ChannelCognitive,
		Volume:    1,
		Timestamp: at,
	}
}

func TestPushAndLen(t *testing.T) {
	base := time.Unix(1000, 0)
	w := NewWindow(5 * time.Second)

	w.Push(event(0, 1, base), base)
	w.Push(event(1, 2, base.Add(time.Second)), base.Add(time.Second))
	assert.Equal(t, 2, w.Len())
}

func TestEvictionFromFront(t *testing.T) {
	base := time.Unix(1000, 0)
	w := NewWindow(5 * time.Second)

	w.Push(event(0, 1, base), base)
	w.Push(event(1, 2, base.Add(2*time.Second)), base.Add(2*time.Second))

	// Pushing at base+6s expires the first event but not the second.
	w.Push(event(2, 3, base.Add(6*time.Second)), base.Add(6*time.Second))
	assert.Equal(t, 2, w.Len())

	events := w.Events()
	require.Len(t, events, 2)
	assert.Equal(t, canvas.TileID(1), events[0].Source)
	assert.Equal(t, canvas.TileID(2), events[1].Source)
}

func TestEventsIsASnapshot(t *testing.T) {
	base := time.Unix(1000, 0)
	w := NewWindow(time.Minute)
	w.Push(event(0, 1, base), base)

	events := w.Events()
	require.Len(t, events, 1)
	events[0].Source = 99

	assert.Equal(t, canvas.TileID(0), w.Events()[0].Source)
}

func TestClear(t *testing.T) {
	base := time.Unix(1000, 0)
	w := NewWindow(time.Minute)
	w.Push(event(0, 1, base), base)
	w.Push(event(1, 2, base), base)

	w.Clear()
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Events())
}

func TestCompactionKeepsOrder(t *testing.T) {
	base := time.Unix(1000, 0)
	w := NewWindow(time.Second)

	// Long sequence where most events expire as new ones arrive; the live
	// tail must stay in arrival order throughout.
	for i := 0; i < 100; i++ {
		at := base.Add(time.Duration(i) * 300 * time.Millisecond)
		w.Push(event(canvas.TileID(i), canvas.TileID(i+1), at), at)
	}

	events := w.Events()
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i-1].Source < events[i].Source)
	}
	last := events[len(events)-1]
	assert.Equal(t, canvas.TileID(99), last.Source)
}
