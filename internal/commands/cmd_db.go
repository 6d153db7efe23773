package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/lectern"
)

type DBCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	steps int
	yes   bool
}

// NewDBCmd creates a new db command
func NewDBCmd(flags *Flags, app *lectern.App) *DBCmd {
	return &DBCmd{flags: flags, app: app}
}

// Register adds the db command to the application
func (cmd *DBCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "db",
		Usage: "Database maintenance commands",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show applied and pending migrations",
				UsageText: "lectern db status",
				Action:    cmd.runStatus,
			},
			{
				Name:      "migrate-down",
				Usage:     "Revert the most recent migrations",
				UsageText: "lectern db migrate-down [--steps n]",
				Description: `Reverts the newest applied migrations. The dropped tables take their
data with them; the next start re-applies the migrations on an empty
schema.`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "steps",
						Usage:       "number of migrations to revert",
						Value:       1,
						Destination: &cmd.steps,
					},
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runMigrateDown,
			},
		},
	})

	return app
}

func (cmd *DBCmd) runStatus(ctx context.Context, c *cli.Command) error {
	statuses, err := db.Status(ctx, cmd.app.DB.Conn())
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, s := range statuses {
		applied := "no"
		if s.Applied {
			applied = "yes"
		}
		_, _ = fmt.Fprintf(w, "%04d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	return w.Flush()
}

func (cmd *DBCmd) runMigrateDown(ctx context.Context, c *cli.Command) error {
	if cmd.steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}

	if !cmd.yes {
		var confirm bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Revert %d migration(s)?", cmd.steps)).
			Description("Reverted tables lose their data.").
			Value(&confirm).
			Run()
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	if err := db.MigrateDown(ctx, cmd.app.DB.Conn(), cmd.steps, log.Logger); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Reverted %d migration(s)\n", cmd.steps)
	return nil
}
