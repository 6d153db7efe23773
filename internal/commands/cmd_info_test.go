package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/core/config"
)

const infoBook = `# Opening Moves

The first chapter has a little prose in it, enough to fill a few
lines once wrapped.

# Middle Game

The second chapter continues the story with more text than the
first one had.
`

func TestInfoCmd_Text(t *testing.T) {
	ctx := context.Background()
	path := writeBook(t, t.TempDir(), "chess.md", infoBook)

	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewInfoCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	require.NoError(t, app.Run(ctx, []string{"lectern", "info", path}))

	out := buf.String()
	assert.Contains(t, out, "Opening Moves")
	assert.Contains(t, out, "markdown")
	assert.Contains(t, out, path)
	assert.Contains(t, out, "Chapters:")
	assert.Contains(t, out, "Pages:")

	// A peek inspection must not index the book.
	books, err := lecternApp.Library.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestInfoCmd_JSON(t *testing.T) {
	ctx := context.Background()
	path := writeBook(t, t.TempDir(), "chess.md", infoBook)

	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewInfoCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	require.NoError(t, app.Run(ctx, []string{"lectern", "info", "--json", path}))

	var got struct {
		Title       string `json:"title"`
		Format      string `json:"format"`
		Path        string `json:"path"`
		Hash        string `json:"hash"`
		Chapters    int    `json:"chapters"`
		Pages       int    `json:"pages"`
		ColumnWidth int    `json:"column_width"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "Opening Moves", got.Title)
	assert.Equal(t, "markdown", got.Format)
	assert.Equal(t, path, got.Path)
	assert.Len(t, got.Hash, 64)
	assert.Equal(t, 2, got.Chapters)
	assert.Positive(t, got.Pages)
	assert.Positive(t, got.ColumnWidth)
}

func TestInfoCmd_TOC(t *testing.T) {
	ctx := context.Background()
	path := writeBook(t, t.TempDir(), "chess.md", infoBook)

	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewInfoCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	require.NoError(t, app.Run(ctx, []string{"lectern", "info", "--toc", path}))

	out := buf.String()
	assert.Contains(t, out, "1  Opening Moves")
	assert.Contains(t, out, "2  Middle Game")
}

func TestInfoCmd_MissingArg(t *testing.T) {
	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewInfoCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	err := app.Run(context.Background(), []string{"lectern", "info"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a book path or id")
}

func TestInfoCmd_UnknownBook(t *testing.T) {
	cfg := config.Default()
	lecternApp := newTestApp(t, &cfg)

	var buf bytes.Buffer
	app := &cli.Command{Name: "lectern", Writer: &buf}
	NewInfoCmd(&Flags{Config: &cfg}, lecternApp).Register(app)

	err := app.Run(context.Background(), []string{"lectern", "info", "no-such-id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such book")
}
