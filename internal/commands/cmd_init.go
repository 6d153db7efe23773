package commands

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	initcmd "github.com/lecternapp/lectern/internal/commands/init"
)

type InitCmd struct {
	flags *Flags
	yes   bool
	force bool
	paths string
}

func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Initialize lectern configuration with an interactive wizard",
		UsageText: "lectern init [options]",
		Description: `Sets up lectern for first-time use with an interactive wizard.

The wizard generates ~/.config/lectern/config.yaml, asking for the
library directories to scan, the color theme, and whether inline
images should be rendered.

Use --yes to accept all defaults without prompts.
Use --force to overwrite existing configuration.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "accept defaults without prompting",
				Destination: &cmd.yes,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite existing configuration",
				Destination: &cmd.force,
			},
			&cli.StringFlag{
				Name:        "paths",
				Usage:       "comma-separated list of library directories",
				Destination: &cmd.paths,
			},
		},
		Action: cmd.run,
	})
	return app
}

// PathsList returns the parsed list of library directories, or nil if not set.
func (cmd *InitCmd) PathsList() []string {
	if cmd.paths == "" {
		return nil
	}
	paths := strings.Split(cmd.paths, ",")
	for i, p := range paths {
		paths[i] = strings.TrimSpace(p)
	}
	return paths
}

func (cmd *InitCmd) run(ctx context.Context, c *cli.Command) error {
	wizard := initcmd.NewWizard(initcmd.WizardOptions{
		ConfigPath: cmd.flags.ConfigPath,
		DataDir:    cmd.flags.DataDir,
		Yes:        cmd.yes,
		Force:      cmd.force,
		Paths:      cmd.PathsList(),
		Out:        c.Root().Writer,
	})
	return wizard.Run(ctx)
}
