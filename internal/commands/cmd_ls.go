package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/internal/library"
	"github.com/lecternapp/lectern/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *lectern.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List indexed books",
		UsageText: "lectern ls [--json]",
		Description: `Displays a table of indexed books with author, format, and progress.

Use --json for machine-readable output, one book per line, with paths,
hashes, and timestamps included.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	books, err := cmd.app.Library.List(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	if len(books) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No books indexed. Run 'lectern scan' to index your library paths.\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, b := range books {
			if err := iojson.WriteLine(out, cmd.buildBookInfo(ctx, b)); err != nil {
				return fmt.Errorf("encode book: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tAUTHOR\tFORMAT\tCHAPTERS\tSIZE\tPROGRESS\tLAST READ")

	for _, b := range books {
		author := b.Author
		if author == "" {
			author = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			b.DisplayTitle(), author, b.Format, b.Chapters,
			humanize.Bytes(uint64(b.SizeBytes)),
			cmd.progress(ctx, b),
			lastRead(b.LastOpenedAt),
		)
	}

	return w.Flush()
}

func (cmd *LsCmd) progress(ctx context.Context, b library.Book) string {
	pos, err := cmd.app.Positions.Get(ctx, b.Hash)
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", pos.Percent)
}

func lastRead(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

// bookInfo is the JSON output format for lectern ls --json.
type bookInfo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	Path         string     `json:"path"`
	Hash         string     `json:"hash"`
	Format       string     `json:"format"`
	Chapters     int        `json:"chapters"`
	SizeBytes    int64      `json:"size_bytes"`
	Percent      float64    `json:"percent"`
	AddedAt      time.Time  `json:"added_at"`
	LastOpenedAt *time.Time `json:"last_opened_at,omitempty"`
}

func (cmd *LsCmd) buildBookInfo(ctx context.Context, b library.Book) bookInfo {
	info := bookInfo{
		ID:           b.ID,
		Title:        b.DisplayTitle(),
		Author:       b.Author,
		Path:         b.Path,
		Hash:         b.Hash,
		Format:       string(b.Format),
		Chapters:     b.Chapters,
		SizeBytes:    b.SizeBytes,
		AddedAt:      b.AddedAt,
		LastOpenedAt: b.LastOpenedAt,
	}

	if pos, err := cmd.app.Positions.Get(ctx, b.Hash); err == nil {
		info.Percent = pos.Percent
	}

	return info
}
