package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdw419/geometry-os-sub002/internal/hcl"
	"github.com/tdw419/geometry-os-sub002/internal/protocol"
)

func testConfig(t *testing.T) (*Config, string) {
	t.Helper()
	stateDir := filepath.Join(t.TempDir(), "state")
	return &Config{
		StateDir:  stateDir,
		LogFormat: "json",
		LogLevel:  "error",
		Once:      true,
	}, stateDir
}

func TestNewApp_Defaults(t *testing.T) {
	t.Parallel()

	cfg, stateDir := testConfig(t)
	out := &bytes.Buffer{}

	engine := NewApp(out, cfg, hcl.NewLoader())
	defer engine.Close()

	require.NotNil(t, engine.Simulator())
	require.NotNil(t, engine.Adapter())
	require.DirExists(t, stateDir, "NewApp should create the state directory")
	require.Nil(t, engine.ledger, "no history path configured, so no ledger should be opened")
}

func TestNewApp_InvalidConfigPanics(t *testing.T) {
	t.Parallel()

	badHCL := `
engine {
  window_ms = -5
}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.hcl")
	require.NoError(t, os.WriteFile(path, []byte(badHCL), 0600))

	cfg, _ := testConfig(t)
	cfg.ConfigPath = path

	require.Panics(t, func() {
		NewApp(&bytes.Buffer{}, cfg, hcl.NewLoader())
	}, "a validation failure is a fatal startup error")
}

func TestRun_OnceAppliesProposal(t *testing.T) {
	t.Parallel()

	cfg, stateDir := testConfig(t)
	cfg.HistoryPath = filepath.Join(t.TempDir(), "ledger.db")

	// Seed a proposal before the engine starts so the single poll finds it.
	require.NoError(t, os.MkdirAll(stateDir, 0o755))
	proposal := protocol.Proposal{
		Version: protocol.FormatVersion,
		ID:      "proposal-integration-1",
		Bonds: []protocol.ProposalBond{
			{Source: 1, Dest: 2, Strength: 1.0, Volume: 10},
		},
	}
	raw, err := json.Marshal(proposal)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, protocol.ProposalFileName), raw, 0600))

	engine := NewApp(&bytes.Buffer{}, cfg, hcl.NewLoader())
	defer engine.Close()

	require.NoError(t, engine.Run(context.Background()))

	// The realignment cycle must have committed and persisted its artifacts.
	require.Equal(t, 1, engine.Simulator().CycleCount())

	deltaRaw, err := os.ReadFile(filepath.Join(stateDir, protocol.DeltaFileName))
	require.NoError(t, err, "a layout delta should have been written")
	var delta protocol.Delta
	require.NoError(t, json.Unmarshal(deltaRaw, &delta))
	require.Equal(t, protocol.FormatVersion, delta.Version)
	require.NotEmpty(t, delta.ID)

	statusRaw, err := os.ReadFile(filepath.Join(stateDir, protocol.StatusFileName))
	require.NoError(t, err, "a status summary should have been written")
	var status protocol.Status
	require.NoError(t, json.Unmarshal(statusRaw, &status))
	require.Equal(t, "proposal-integration-1", status.LastProposalID)
	require.Equal(t, 1, status.CycleCount)
	require.Empty(t, status.Error)

	recs, err := engine.ledger.Recent(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "proposal-integration-1", recs[0].ProposalID)
	require.Equal(t, 1, recs[0].Cycle)
}

func TestRun_OnceWithoutProposal(t *testing.T) {
	t.Parallel()

	cfg, stateDir := testConfig(t)
	engine := NewApp(&bytes.Buffer{}, cfg, hcl.NewLoader())
	defer engine.Close()

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, 0, engine.Simulator().CycleCount())
	require.NoFileExists(t, filepath.Join(stateDir, protocol.DeltaFileName))
}
