package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/commands"
	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/styles"
	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/data/stores"
	"github.com/lecternapp/lectern/internal/lectern"
	"github.com/lecternapp/lectern/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// openDatabase opens the SQLite database, recovering once from a
// corrupt file by moving it aside and starting fresh. The library can
// always be rebuilt with a scan; losing positions beats not starting.
func openDatabase(dataDir string) (*db.DB, error) {
	opts := db.OpenOptions{Log: log.Logger}

	database, err := db.Open(dataDir, opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, err
	}

	log.Warn().Err(err).Msg("database is corrupt; moving it aside and starting fresh")
	if recErr := stores.RecoverFromCorruption(dataDir); recErr != nil {
		return nil, fmt.Errorf("recover corrupt database: %w", recErr)
	}
	return db.Open(dataDir, opts)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		lecternApp = &lectern.App{}
		database   *db.DB
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "lectern",
		Usage:     "Read books in your terminal",
		UsageText: "lectern [global options] [command] [book]",
		Description: `Lectern is a terminal reader for EPUB and markdown books, with
paginated text, inline images on capable terminals, and reading
positions that survive window resizes.

Run 'lectern' with no arguments to open the library picker.
Run 'lectern <path>' to open a book directly.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LECTERN_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/lectern.log)",
				Sources:     cli.EnvVars("LECTERN_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LECTERN_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("LECTERN_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; the terminal belongs to the reader
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "lectern.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			// Apply configured theme
			if !styles.Apply(cfg.Theme) {
				log.Warn().Str("theme", cfg.Theme).Msg("unknown theme, using default")
			}

			database, err = openDatabase(cfg.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			bookStore := stores.NewBookStore(database)
			positionStore := stores.NewPositionStore(database)
			kvStore := stores.NewKVStore(database)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*lecternApp = *lectern.NewApp(
				bookStore,
				positionStore,
				kvStore,
				cfg,
				database,
				log.Logger,
			)

			flags.Config = cfg
			flags.App = lecternApp

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	readCmd := commands.NewReadCmd(flags, lecternApp)

	app = readCmd.Register(app)
	app = commands.NewLsCmd(flags, lecternApp).Register(app)
	app = commands.NewInfoCmd(flags, lecternApp).Register(app)
	app = commands.NewScanCmd(flags, lecternApp).Register(app)
	app = commands.NewRmCmd(flags, lecternApp).Register(app)
	app = commands.NewCacheCmd(flags, lecternApp).Register(app)
	app = commands.NewDBCmd(flags, lecternApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = commands.NewInitCmd(flags).Register(app)

	// Register reader flags on root command
	app.Flags = append(app.Flags, readCmd.Flags()...)

	// With no subcommand, open the reader; a positional argument is a book
	app.Action = readCmd.Run

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
