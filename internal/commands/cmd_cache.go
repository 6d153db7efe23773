package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/lectern"
)

const pagemapPrefix = "pagemap:"

type CacheCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	purgeAll bool
}

// NewCacheCmd creates a new cache command
func NewCacheCmd(flags *Flags, app *lectern.App) *CacheCmd {
	return &CacheCmd{flags: flags, app: app}
}

// Register adds the cache command to the application
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the pagination cache",
		Commands: []*cli.Command{
			{
				Name:      "stats",
				Usage:     "Show cached page maps per book",
				UsageText: "lectern cache stats",
				Action:    cmd.runStats,
			},
			{
				Name:      "purge",
				Usage:     "Delete cached page maps",
				UsageText: "lectern cache purge <book> | --all",
				Description: `Deletes the cached page maps for one book, or every book with --all.
Purged maps are rebuilt on the next open; nothing else is lost.`,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "all",
						Usage:       "purge the entire cache",
						Destination: &cmd.purgeAll,
					},
				},
				ShellComplete: BookCompleter(cmd.app),
				Action:        cmd.runPurge,
			},
		},
	})

	return app
}

type cacheRow struct {
	docID   string
	title   string
	entries int
	bytes   int64
}

func (cmd *CacheCmd) runStats(ctx context.Context, c *cli.Command) error {
	keys, err := cmd.app.KV.ListKeys(ctx, pagemapPrefix)
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}

	out := c.Root().Writer
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "Cache is empty")
		return nil
	}

	rows := map[string]*cacheRow{}
	var totalBytes int64
	for _, key := range keys {
		docID, ok := docIDFromKey(key)
		if !ok {
			continue
		}
		row := rows[docID]
		if row == nil {
			row = &cacheRow{docID: docID}
			rows[docID] = row
		}
		row.entries++

		if entry, err := cmd.app.KV.GetRaw(ctx, key); err == nil {
			row.bytes += int64(len(entry.Value))
			totalBytes += int64(len(entry.Value))
		}
	}

	cmd.fillTitles(ctx, rows)

	sorted := make([]*cacheRow, 0, len(rows))
	for _, row := range rows {
		sorted = append(sorted, row)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].bytes > sorted[j].bytes })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BOOK\tMAPS\tSIZE")
	for _, row := range sorted {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", row.title, row.entries, humanize.Bytes(uint64(row.bytes)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\n%d map(s), %s total\n", len(keys), humanize.Bytes(uint64(totalBytes)))
	return nil
}

func (cmd *CacheCmd) runPurge(ctx context.Context, c *cli.Command) error {
	out := c.Root().Writer

	if cmd.purgeAll {
		n, err := cmd.app.Cache.PurgeAll(ctx)
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Purged %d cached page map(s)\n", n)
		return nil
	}

	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("expected a book path or id, or --all")
	}

	b, err := cmd.app.Library.Resolve(ctx, ref)
	if err != nil {
		return fmt.Errorf("no such book: %s", ref)
	}

	n, err := cmd.app.Cache.Purge(ctx, b.Hash)
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Purged %d cached page map(s) for %s\n", n, b.DisplayTitle())
	return nil
}

// docIDFromKey extracts the document hash from a pagemap:<id>:<mode>:<sig> key.
func docIDFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, pagemapPrefix)
	if !ok {
		return "", false
	}
	id, _, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// fillTitles maps document hashes to library titles; unindexed books
// keep their short hash.
func (cmd *CacheCmd) fillTitles(ctx context.Context, rows map[string]*cacheRow) {
	for _, row := range rows {
		row.title = shortHash(row.docID)
	}

	books, err := cmd.app.Library.List(ctx)
	if err != nil {
		return
	}
	for _, b := range books {
		if row, ok := rows[b.Hash]; ok {
			row.title = b.DisplayTitle()
		}
	}
}
