package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/core/config"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "lectern config validate [options]",
				Description: "Validates the configuration file, checking enum values, glob patterns, and library paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// validationError is one failed field in JSON output.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)
	fieldErrs := collectFieldErrors(err)
	warnings := cmd.flags.Config.Warnings()

	if cmd.format == "json" {
		return cmd.outputJSON(c, fieldErrs, warnings)
	}

	return cmd.outputText(c, fieldErrs, warnings)
}

func collectFieldErrors(err error) []validationError {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		out := make([]validationError, len(fieldErrs))
		for i, fe := range fieldErrs {
			out[i] = validationError{Field: fe.Field, Message: fe.Err.Error()}
		}
		return out
	}
	return []validationError{{Field: "config", Message: err.Error()}}
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, fieldErrs []validationError, warnings []config.ValidationWarning) error {
	out := struct {
		Valid    bool                       `json:"valid"`
		Errors   []validationError          `json:"errors,omitempty"`
		Warnings []config.ValidationWarning `json:"warnings,omitempty"`
	}{
		Valid:    len(fieldErrs) == 0,
		Errors:   fieldErrs,
		Warnings: warnings,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !out.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputText(c *cli.Command, fieldErrs []validationError, warnings []config.ValidationWarning) error {
	out := c.Root().Writer

	_, _ = fmt.Fprintf(out, "Config: %s\n", cmd.flags.ConfigPath)
	_, _ = fmt.Fprintf(out, "Data dir: %s\n", cmd.flags.Config.DataDir)

	for _, warn := range warnings {
		_, _ = fmt.Fprintf(out, "warning: %s: %s", warn.Category, warn.Message)
		if warn.Item != "" {
			_, _ = fmt.Fprintf(out, " (%s)", warn.Item)
		}
		_, _ = fmt.Fprintln(out)
	}

	for _, fe := range fieldErrs {
		_, _ = fmt.Fprintf(out, "error: %s: %s\n", fe.Field, fe.Message)
	}

	_, _ = fmt.Fprintln(out)
	if len(fieldErrs) == 0 {
		_, _ = fmt.Fprintln(out, "Configuration is valid")
		return nil
	}

	_, _ = fmt.Fprintf(out, "%d error(s) found\n", len(fieldErrs))
	return cli.Exit("", 1)
}
