package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/internal/profiler"
	"github.com/lecternapp/lectern/internal/tui"
	"github.com/lecternapp/lectern/internal/tui/kitty"
)

type ReadCmd struct {
	flags *Flags
	app   *lectern.App

	// flags
	noImages bool
	noWatch  bool
}

// NewReadCmd creates a new read command
func NewReadCmd(flags *Flags, app *lectern.App) *ReadCmd {
	return &ReadCmd{flags: flags, app: app}
}

// Flags returns the read-specific flags for registration on the root command
func (cmd *ReadCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "profiler-port",
			Usage:       "enable pprof HTTP endpoint on specified port (e.g., 6060)",
			Sources:     cli.EnvVars("LECTERN_PROFILER_PORT"),
			Destination: &cmd.flags.ProfilerPort,
		},
		&cli.BoolFlag{
			Name:        "no-images",
			Usage:       "render images as text placeholders even on capable terminals",
			Destination: &cmd.noImages,
		},
		&cli.BoolFlag{
			Name:        "no-watch",
			Usage:       "do not watch library paths for changes",
			Destination: &cmd.noWatch,
		},
	}
}

// Register adds the read command to the application
func (cmd *ReadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "read",
		Usage:     "Open a book, or the library picker",
		UsageText: "lectern read [book]",
		Description: `Opens the reader. With an argument, the book is opened directly;
the argument may be a file path or the id of an indexed book.
Without one, the library picker is shown.

Running 'lectern' with no subcommand does the same thing.`,
		Flags:         cmd.Flags(),
		ShellComplete: BookCompleter(cmd.app),
		Action:        cmd.run,
	})
	return app
}

// Run executes the reader. Exported for use as default command.
func (cmd *ReadCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *ReadCmd) run(ctx context.Context, c *cli.Command) error {
	// Start profiler server if enabled
	if cmd.flags.ProfilerPort > 0 {
		profServer := profiler.New(cmd.flags.ProfilerPort)
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler endpoint available")
	}

	startPath, err := cmd.resolveArg(ctx, c.Args().First())
	if err != nil {
		return err
	}

	cfg := cmd.flags.Config
	images := cfg.Images.Enabled && !cmd.noImages &&
		kitty.Enabled(cfg.Images.Protocol, os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))

	opts := tui.Options{
		StartPath: startPath,
		Images:    images,
		Watch:     !cmd.noWatch && len(cfg.Library.Paths) > 0,
	}

	m := tui.New(cmd.app, cfg, opts)
	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// resolveArg turns the positional argument into a file path. A path
// that exists wins; otherwise the library index is consulted so ids
// and previously indexed paths work too.
func (cmd *ReadCmd) resolveArg(ctx context.Context, arg string) (string, error) {
	if arg == "" {
		return "", nil
	}
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}

	b, err := cmd.app.Library.Resolve(ctx, arg)
	if err != nil {
		return "", fmt.Errorf("no such book: %s", arg)
	}
	return b.Path, nil
}
