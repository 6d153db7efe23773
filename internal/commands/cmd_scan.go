package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/lectern"
)

type ScanCmd struct {
	flags *Flags
	app   *lectern.App
}

// NewScanCmd creates a new scan command
func NewScanCmd(flags *Flags, app *lectern.App) *ScanCmd {
	return &ScanCmd{flags: flags, app: app}
}

// Register adds the scan command to the application
func (cmd *ScanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "scan",
		Usage:     "Index books under the library paths",
		UsageText: "lectern scan [root ...]",
		Description: `Walks the configured library paths, matches files against the
library.include patterns, and brings the book index up to date.
New files are added, changed files re-read, and metadata refreshed.

Explicit roots given as arguments are scanned instead of the
configured ones.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ScanCmd) run(ctx context.Context, c *cli.Command) error {
	results, err := cmd.app.Library.ScanRoots(ctx, c.Args().Slice())
	if err != nil {
		return fmt.Errorf("scan library: %w", err)
	}

	out := c.Root().Writer
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROOT\tFOUND\tADDED\tUPDATED\tFAILED")

	var added, updated, failed int
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", r.Root, r.Found, r.Added, r.Updated, r.Failed)
		added += r.Added
		updated += r.Updated
		failed += r.Failed
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\n%d added, %d updated", added, updated)
	if failed > 0 {
		_, _ = fmt.Fprintf(out, ", %d failed (see log)", failed)
	}
	_, _ = fmt.Fprintln(out)

	return nil
}
