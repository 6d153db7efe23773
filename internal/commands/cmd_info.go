package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/pkg/iojson"
)

type InfoCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	jsonOutput bool
	showTOC    bool
}

// NewInfoCmd creates a new info command
func NewInfoCmd(flags *Flags, app *lectern.App) *InfoCmd {
	return &InfoCmd{flags: flags, app: app}
}

// Register adds the info command to the application
func (cmd *InfoCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "info",
		Usage:     "Show metadata and pagination stats for a book",
		UsageText: "lectern info <book> [--toc] [--json]",
		Description: `Opens the book, paginates it at the current terminal size, and prints
its metadata together with the resulting page counts. The book's
library entry and reading position are left untouched.

The argument may be a file path or the id of an indexed book.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "toc",
				Usage:       "also print the chapter list",
				Destination: &cmd.showTOC,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: BookCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

// infoOutput is the JSON output format for lectern info --json.
type infoOutput struct {
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Language    string   `json:"language,omitempty"`
	Format      string   `json:"format"`
	Path        string   `json:"path"`
	Hash        string   `json:"hash"`
	SizeBytes   int64    `json:"size_bytes"`
	Chapters    int      `json:"chapters"`
	Pages       int      `json:"pages"`
	ColumnWidth int      `json:"column_width"`
	LinesPage   int      `json:"lines_per_page"`
	Percent     float64  `json:"percent"`
	TOC         []string `json:"toc,omitempty"`
}

func (cmd *InfoCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("expected a book path or id")
	}

	path := ref
	if _, err := os.Stat(ref); err != nil {
		b, err := cmd.app.Library.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("no such book: %s", ref)
		}
		path = b.Path
	}

	r, err := cmd.app.Reader.Open(ctx, path, lectern.OpenOptions{Peek: true})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		// Piped output still gets stats, at a nominal size.
		width, height = 80, 24
	}
	r.SetLayout(width, height)

	if err := r.EnsurePagination(ctx, nil); err != nil {
		return fmt.Errorf("paginate: %w", err)
	}

	entry := r.Entry()
	metrics := r.Metrics()
	spread, _ := r.Current()

	info := infoOutput{
		Title:       r.Title(),
		Author:      entry.Author,
		Language:    entry.Language,
		Format:      string(entry.Format),
		Path:        entry.Path,
		Hash:        entry.Hash,
		SizeBytes:   entry.SizeBytes,
		Chapters:    r.ChapterCount(),
		Pages:       spread.TotalPages,
		ColumnWidth: metrics.ColumnWidth,
		LinesPage:   metrics.LinesPerPage,
	}
	// The saved percent, not the live one: a book that was never read
	// reports zero rather than "on page 1".
	if pos, err := cmd.app.Positions.Get(ctx, entry.Hash); err == nil {
		info.Percent = pos.Percent
	}
	if cmd.showTOC {
		info.TOC = r.ChapterTitles()
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, info)
	}

	out := c.Root().Writer
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Title:\t%s\n", info.Title)
	if info.Author != "" {
		_, _ = fmt.Fprintf(w, "Author:\t%s\n", info.Author)
	}
	if info.Language != "" {
		_, _ = fmt.Fprintf(w, "Language:\t%s\n", info.Language)
	}
	_, _ = fmt.Fprintf(w, "Format:\t%s\n", info.Format)
	_, _ = fmt.Fprintf(w, "Path:\t%s\n", info.Path)
	_, _ = fmt.Fprintf(w, "Size:\t%s\n", humanize.Bytes(uint64(info.SizeBytes)))
	_, _ = fmt.Fprintf(w, "Hash:\t%s\n", shortHash(info.Hash))
	_, _ = fmt.Fprintf(w, "Chapters:\t%d\n", info.Chapters)
	_, _ = fmt.Fprintf(w, "Pages:\t%d (at %dx%d, %d-column lines)\n",
		info.Pages, width, height, info.ColumnWidth)
	if info.Percent > 0 {
		_, _ = fmt.Fprintf(w, "Progress:\t%.0f%%\n", info.Percent)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if cmd.showTOC {
		_, _ = fmt.Fprintln(out)
		for i, title := range info.TOC {
			_, _ = fmt.Fprintf(out, "%4d  %s\n", i+1, title)
		}
	}

	return nil
}

// shortHash trims a content hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
