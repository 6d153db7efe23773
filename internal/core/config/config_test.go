package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, paginate.ModeDynamic, cfg.Reading.Mode)
	assert.Equal(t, layout.ViewSingle, cfg.Reading.ViewMode)
	assert.Equal(t, layout.SpacingNormal, cfg.Reading.LineSpacing)
	assert.False(t, cfg.Reading.Justify)
	assert.True(t, cfg.Images.Enabled)
	assert.Equal(t, ProtocolAuto, cfg.Images.Protocol)
	assert.Equal(t, []string{"**/*.epub", "**/*.md"}, cfg.Library.Include)
	assert.True(t, cfg.Cache.Enabled)

	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, paginate.ModeDynamic, cfg.Reading.Mode)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "does-not-exist.yml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, Default().Reading, cfg.Reading)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.yml")

	content := `
reading:
  mode: absolute
  view_mode: split
  justify: true
images:
  enabled: false
library:
  paths:
    - /books
theme: gruvbox
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, paginate.ModeAbsolute, cfg.Reading.Mode)
	assert.Equal(t, layout.ViewSplit, cfg.Reading.ViewMode)
	assert.True(t, cfg.Reading.Justify)
	assert.False(t, cfg.Images.Enabled)
	assert.Equal(t, []string{"/books"}, cfg.Library.Paths)
	assert.Equal(t, "gruvbox", cfg.Theme)

	// keys absent from the file keep their defaults
	assert.Equal(t, layout.SpacingNormal, cfg.Reading.LineSpacing)
	assert.Equal(t, ProtocolAuto, cfg.Images.Protocol)
	assert.Equal(t, []string{"**/*.epub", "**/*.md"}, cfg.Library.Include)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_PartialSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.yml")
	require.NoError(t, os.WriteFile(path, []byte("reading:\n  view_mode: split\n"), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, layout.ViewSplit, cfg.Reading.ViewMode)
	assert.Equal(t, paginate.ModeDynamic, cfg.Reading.Mode, "unset sibling keys keep defaults")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.yml")
	require.NoError(t, os.WriteFile(path, []byte("reading: [not a map"), 0o644))

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lectern.yml")
	require.NoError(t, os.WriteFile(path, []byte("reading:\n  mode: backwards\n"), 0o644))

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "reading.mode")
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config", "lectern.yml")

	cfg := Default()
	cfg.Reading.ViewMode = layout.ViewSplit
	cfg.Library.Paths = []string{"/books"}
	cfg.Theme = "midnight"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, layout.ViewSplit, loaded.Reading.ViewMode)
	assert.Equal(t, []string{"/books"}, loaded.Library.Paths)
	assert.Equal(t, "midnight", loaded.Theme)
	assert.Equal(t, dir, loaded.DataDir, "data dir comes from the caller, not the file")
}

func TestLogFile(t *testing.T) {
	cfg := Config{DataDir: "/data/lectern"}
	assert.Equal(t, filepath.Join("/data/lectern", "lectern.log"), cfg.LogFile())
}
