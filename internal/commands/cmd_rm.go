package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/lectern"
)

type RmCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	yes   bool
	purge bool
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags, app *lectern.App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Remove a book from the index",
		UsageText: "lectern rm <book> [--purge] [--yes]",
		Description: `Drops a book from the index. The file on disk is never touched, and
rescanning the library brings the book back.

With --purge, the saved reading position and cached page maps are
deleted too, so a re-added book starts from the beginning.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "purge",
				Usage:       "also delete the reading position and cached page maps",
				Destination: &cmd.purge,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.yes,
			},
		},
		ShellComplete: BookCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("expected a book path or id")
	}

	b, err := cmd.app.Library.Resolve(ctx, ref)
	if err != nil {
		return fmt.Errorf("no such book: %s", ref)
	}

	if !cmd.yes {
		var confirm bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Remove %q from the library?", b.DisplayTitle())).
			Description(b.Path).
			Value(&confirm).
			Run()
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := cmd.app.Library.Remove(ctx, b.ID); err != nil {
		return err
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "Removed %s\n", b.DisplayTitle())

	if cmd.purge {
		if err := cmd.app.Positions.Delete(ctx, b.Hash); err != nil {
			return fmt.Errorf("delete position: %w", err)
		}
		n, err := cmd.app.Cache.Purge(ctx, b.Hash)
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Purged reading position and %d cached page map(s)\n", n)
	}

	return nil
}
