package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdw419/geometry-os-sub002/internal/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "tectonic.hcl", `
engine {
  window_ms         = 8000
  min_bond_strength = 0.3
  ideal_spacing     = 150
  max_displacement  = 25
  locality_strength = 0.6
  min_movement      = 2
}

protocol {
  state_dir        = "/tmp/tectonic-state"
  poll_interval_ms = 250
}

history {
  path = "/tmp/tectonic-history.db"
}
`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 8*time.Second, model.Engine.Window)
	assert.Equal(t, 0.3, model.Engine.MinBondStrength)
	assert.Equal(t, 150.0, model.Engine.IdealSpacing)
	assert.Equal(t, 25.0, model.Engine.MaxDisplacement)
	assert.Equal(t, 0.6, model.Engine.LocalityStrength)
	assert.Equal(t, 2.0, model.Engine.MinMovement)
	assert.Equal(t, "/tmp/tectonic-state", model.Protocol.StateDir)
	assert.Equal(t, 250*time.Millisecond, model.Protocol.PollInterval)
	assert.Equal(t, "/tmp/tectonic-history.db", model.History.Path)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "partial.hcl", `
engine {
  ideal_spacing = 200
}
`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	defaults := config.Default()
	assert.Equal(t, 200.0, model.Engine.IdealSpacing)
	assert.Equal(t, defaults.Engine.Window, model.Engine.Window)
	assert.Equal(t, defaults.Protocol.StateDir, model.Protocol.StateDir)
	assert.Empty(t, model.History.Path)
}

func TestLoadWithNoPathsReturnsDefaults(t *testing.T) {
	model, err := NewLoader().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), model)
}

func TestLoadSkipsMissingPath(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), "/does/not/exist.hcl")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), model)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.hcl", `engine { ideal_spacing = 42 }`)
	writeConfig(t, dir, "b.hcl", `protocol { state_dir = "/var/tectonic" }`)
	writeConfig(t, dir, "ignored.txt", `not hcl`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 42.0, model.Engine.IdealSpacing)
	assert.Equal(t, "/var/tectonic", model.Protocol.StateDir)
}

func TestLoadRejectsMalformedHCL(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.hcl", `engine { window_ms = `)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to parse HCL file")
}

func TestLoadRejectsWrongAttributeType(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "wrong.hcl", `engine { ideal_spacing = "wide" }`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
}
