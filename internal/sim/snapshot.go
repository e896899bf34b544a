package sim

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tdw419/geometry-os-sub002/internal/canvas"
	"github.com/tdw419/geometry-os-sub002/internal/fsutil"
)

// Snapshot is a best-effort, human-readable view of the canvas after a
// realignment cycle.
type Snapshot struct {
	Cycle          int
	Positions      map[canvas.TileID]canvas.Coord
	MovementCount  int
	ImprovementPct float64
	Preservation   float64
	Taken          time.Time
}

// Snapshotter is the observability sink the simulator emits to after each
// applied delta. Implementations must tolerate being called once per cycle;
// failures are surfaced to the caller but never undo the applied layout.
type Snapshotter interface {
	WriteSnapshot(ctx context.Context, snap Snapshot) error
}

// FileSnapshotter renders snapshots as plain text and writes them atomically
// into a directory, one file overwritten per cycle.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter writes snapshots to canvas_snapshot.txt under dir.
func NewFileSnapshotter(dir string) *FileSnapshotter {
	return &FileSnapshotter{path: filepath.Join(dir, "canvas_snapshot.txt")}
}

// WriteSnapshot implements Snapshotter.
func (f *FileSnapshotter) WriteSnapshot(_ context.Context, snap Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %d  %s\n", snap.Cycle, snap.Taken.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "movements=%d improvement=%.2f%% preservation=%.3f tiles=%d\n",
		snap.MovementCount, snap.ImprovementPct, snap.Preservation, len(snap.Positions))

	ids := make([]canvas.TileID, 0, len(snap.Positions))
	for id := range snap.Positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		pos := snap.Positions[id]
		fmt.Fprintf(&b, "tile %-8d (%10.2f, %10.2f)\n", id, pos.X, pos.Y)
	}

	return fsutil.WriteFileAtomic(f.path, []byte(b.String()))
}
