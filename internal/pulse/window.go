// Package pulse provides the time-bounded buffer of raw interaction events
// feeding the bond aggregator.
package pulse

import (
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
)

// Window is a time-ordered buffer of pulse events. Push appends at the back
// and evicts, from the front, anything older than now minus the window
// length. Eviction is amortized O(1) per push: the backing slice is compacted
// only once the dead prefix outgrows the live tail.
//
// A Window is owned exclusively by the orchestrator and is not safe for
// concurrent use.
type Window struct {
	length time.Duration
	events []canvas.PulseEvent
	head   int
}

// NewWindow creates a window keeping events for the given duration.
func NewWindow(length time.Duration) *Window {
	return &Window{length: length}
}

// Push appends ev and evicts expired events from the front. The caller's
// clock is passed in so the window never reads wall time itself.
func (w *Window) Push(ev canvas.PulseEvent, now time.Time) {
	w.events = append(w.events, ev)
	cutoff := now.Add(-w.length)
	for w.head < len(w.events) && w.events[w.head].Timestamp.Before(cutoff) {
		w.head++
	}
	if w.head > len(w.events)/2 {
		w.events = append(w.events[:0], w.events[w.head:]...)
		w.head = 0
	}
}

// Len reports the number of live events.
func (w *Window) Len() int {
	return len(w.events) - w.head
}

// Events returns a snapshot of the live events in arrival order.
func (w *Window) Events() []canvas.PulseEvent {
	out := make([]canvas.PulseEvent, w.Len())
	copy(out, w.events[w.head:])
	return out
}

// Clear drops all buffered events.
func (w *Window) Clear() {
	w.events = w.events[:0]
	w.head = 0
}
