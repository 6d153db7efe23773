package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/core/config"
)

func TestScanCmd_ConfiguredPaths(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "alpha.md", "# Alpha Book\n\nSome prose.\n")
	writeBook(t, root, "sub/beta.md", "# Beta Book\n\nMore prose.\n")

	cfg := config.Default()
	cfg.Library.Paths = []string{root}
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewScanCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	err := app.Run(context.Background(), []string{"lectern", "scan"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ROOT")
	assert.Contains(t, out, root)
	assert.Contains(t, out, "2 added, 0 updated")

	books, err := lecternApp.Library.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestScanCmd_ExplicitRoots(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "solo.md", "# Solo\n\ntext\n")

	// No configured paths; the argument names the root directly.
	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewScanCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	err := app.Run(context.Background(), []string{"lectern", "scan", root})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 added, 0 updated")
}

func TestScanCmd_NoPathsConfigured(t *testing.T) {
	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewScanCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	err := app.Run(context.Background(), []string{"lectern", "scan"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no library paths configured")
}

func TestScanCmd_RescanReportsUpdates(t *testing.T) {
	root := t.TempDir()
	writeBook(t, root, "book.md", "# Growing\n\nshort\n")

	cfg := config.Default()
	cfg.Library.Paths = []string{root}
	lecternApp := newTestApp(t, &cfg)

	run := func() string {
		var buf bytes.Buffer
		app := &cli.Command{Name: "lectern", Writer: &buf}
		NewScanCmd(&Flags{Config: &cfg}, lecternApp).Register(app)
		require.NoError(t, app.Run(context.Background(), []string{"lectern", "scan"}))
		return buf.String()
	}

	assert.Contains(t, run(), "1 added, 0 updated")

	writeBook(t, root, "book.md", "# Growing\n\nconsiderably longer text\n")
	assert.Contains(t, run(), "0 added, 1 updated")
}
