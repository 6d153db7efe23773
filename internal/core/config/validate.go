package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("reading.mode", string(c.Reading.Mode), validPaginationMode),
		criterio.Run("reading.view_mode", string(c.Reading.ViewMode), validViewMode),
		criterio.Run("reading.line_spacing", string(c.Reading.LineSpacing), validSpacing),
		criterio.Run("images.protocol", string(c.Images.Protocol), validProtocol),
		criterio.Run("data_dir", c.DataDir, nonEmpty),
		c.validateIncludes(),
	)
}

// ValidateDeep performs comprehensive validation of the configuration
// including filesystem checks. The configPath argument specifies the
// config file location to validate (empty string skips the check).
// This calls Validate() first for basic structural validation, then
// adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		c.validateLibraryPaths(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.Library.Paths) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Library",
			Message:  "no library paths configured; books can still be opened by path",
		})
	}

	for i, p := range c.Library.Paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			warnings = append(warnings, ValidationWarning{
				Category: "Library",
				Item:     fmt.Sprintf("paths[%d]", i),
				Message:  fmt.Sprintf("%s does not exist", p),
			})
		}
	}

	if !c.Images.Enabled && c.Images.Protocol == ProtocolKitty {
		warnings = append(warnings, ValidationWarning{
			Category: "Images",
			Message:  "images.protocol is kitty but images.enabled is false",
		})
	}

	return warnings
}

func validPaginationMode(s string) error {
	if !paginate.Mode(s).Valid() {
		return fmt.Errorf("must be %q or %q", paginate.ModeDynamic, paginate.ModeAbsolute)
	}
	return nil
}

func validViewMode(s string) error {
	if !layout.ViewMode(s).Valid() {
		return fmt.Errorf("must be %q or %q", layout.ViewSingle, layout.ViewSplit)
	}
	return nil
}

func validSpacing(s string) error {
	if !layout.Spacing(s).Valid() {
		return fmt.Errorf("must be %q, %q, or %q", layout.SpacingCompact, layout.SpacingNormal, layout.SpacingRelaxed)
	}
	return nil
}

func validProtocol(s string) error {
	if !ImageProtocol(s).Valid() {
		return fmt.Errorf("must be %q, %q, or %q", ProtocolAuto, ProtocolKitty, ProtocolOff)
	}
	return nil
}

func nonEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

// validateIncludes checks that library include globs parse.
func (c *Config) validateIncludes() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Library.Include {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("library.include[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}

// validateLibraryPaths checks that configured roots, where present, are
// directories. Missing roots are fine; the scanner skips them.
func (c *Config) validateLibraryPaths() error {
	var errs criterio.FieldErrorsBuilder
	for i, p := range c.Library.Paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			errs = errs.Append(fmt.Sprintf("library.paths[%d]", i), fmt.Errorf("cannot access: %w", err))
			continue
		}
		if !info.IsDir() {
			errs = errs.Append(fmt.Sprintf("library.paths[%d]", i), fmt.Errorf("%s is not a directory", p))
		}
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
