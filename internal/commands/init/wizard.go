// Package initcmd holds the first-run wizard behind lectern init.
package initcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/styles"
)

// WizardOptions configures the wizard behavior.
type WizardOptions struct {
	ConfigPath string
	DataDir    string
	Yes        bool     // skip prompts, use defaults
	Force      bool     // overwrite existing config
	Paths      []string // pre-specified library paths (nil = prompt)

	// Out receives the wizard's progress output; defaults to stdout.
	Out io.Writer
}

// Wizard orchestrates the init process.
type Wizard struct {
	opts WizardOptions
	out  io.Writer
}

// NewWizard creates a new init wizard.
func NewWizard(opts WizardOptions) *Wizard {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Wizard{opts: opts, out: out}
}

// Run executes the wizard.
func (w *Wizard) Run(ctx context.Context) error {
	// Check for existing config
	if ConfigExists(w.opts.ConfigPath) && !w.opts.Force {
		if w.opts.Yes {
			return fmt.Errorf("config exists at %s; use --force to overwrite", w.opts.ConfigPath)
		}

		var overwrite bool
		err := huh.NewConfirm().
			Title("Config file already exists").
			Description(w.opts.ConfigPath + "\nOverwrite? (a backup will be created)").
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(w.out, "Init cancelled")
			return nil
		}
	}

	// Collect configuration
	cfg := config.Default()
	cfg.Library.Paths = w.opts.Paths
	if len(cfg.Library.Paths) == 0 {
		cfg.Library.Paths = DefaultLibraryPaths()
	}

	if !w.opts.Yes {
		if err := w.promptUser(&cfg); err != nil {
			return err
		}
	}

	// Expand ~ in paths
	for i, dir := range cfg.Library.Paths {
		cfg.Library.Paths[i] = expandHome(dir)
	}

	// Backup existing config if needed
	if ConfigExists(w.opts.ConfigPath) {
		backupPath, err := BackupConfig(w.opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("backup config: %w", err)
		}
		if backupPath != "" {
			fmt.Fprintf(w.out, "Backed up config to: %s\n", backupPath)
		}
	}

	if err := cfg.Save(w.opts.ConfigPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(w.out, "Created config: %s\n", w.opts.ConfigPath)

	// Point out configured paths that do not exist yet
	cfg.DataDir = w.opts.DataDir
	for _, warn := range cfg.Warnings() {
		fmt.Fprintf(w.out, "note: %s\n", warn.Message)
	}

	w.printNextSteps()
	return nil
}

func (w *Wizard) promptUser(cfg *config.Config) error {
	pathsStr := strings.Join(cfg.Library.Paths, ", ")
	theme := cfg.Theme

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Library directories").
			Description("Comma-separated list of directories to scan for books").
			Value(&pathsStr),
		huh.NewSelect[string]().
			Title("Theme").
			Options(huh.NewOptions(styles.ThemeNames()...)...).
			Value(&theme),
		huh.NewConfirm().
			Title("Show images?").
			Description("Renders inline images on kitty-compatible terminals").
			Value(&cfg.Images.Enabled),
	))
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Theme = theme
	cfg.Library.Paths = nil
	for _, dir := range strings.Split(pathsStr, ",") {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			cfg.Library.Paths = append(cfg.Library.Paths, dir)
		}
	}

	return nil
}

func (w *Wizard) printNextSteps() {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Next steps:")
	fmt.Fprintln(w.out, "  1. Run 'lectern scan' to index your books")
	fmt.Fprintln(w.out, "  2. Run 'lectern' to start reading")
}

// DefaultLibraryPaths returns the library roots offered when the user
// has not named any.
func DefaultLibraryPaths() []string {
	return []string{"~/Books"}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
