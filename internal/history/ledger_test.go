package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdw419/geometry-os-sub002/internal/protocol"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)
	applied := time.UnixMilli(1700000000000).UTC()

	for i := 1; i <= 3; i++ {
		err := l.RecordRealignment(protocol.Realignment{
			Cycle:          i,
			DeltaID:        "delta-" + string(rune('a'+i-1)),
			ProposalID:     "prop-1",
			MovementCount:  i * 2,
			BeforeSaccade:  100,
			AfterSaccade:   80,
			ImprovementPct: 20,
			Preservation:   0.9,
			AppliedAt:      applied.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recent, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, 3, recent[0].Cycle)
	assert.Equal(t, 2, recent[1].Cycle)
	assert.Equal(t, "prop-1", recent[0].ProposalID)
	assert.Equal(t, 6, recent[0].MovementCount)
	assert.InDelta(t, 20.0, recent[0].ImprovementPct, 1e-9)
	assert.InDelta(t, 0.9, recent[0].Preservation, 1e-9)
	assert.Equal(t, applied.Add(3*time.Minute), recent[0].AppliedAt)
}

func TestRecentOnEmptyLedger(t *testing.T) {
	l := openTestLedger(t)
	recent, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestOpenIsIdempotentOnExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.RecordRealignment(protocol.Realignment{Cycle: 1, DeltaID: "d", AppliedAt: time.Now()}))
	require.NoError(t, l.Close())

	// Reopening must keep existing rows and not re-create the schema.
	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	recent, err := l2.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
