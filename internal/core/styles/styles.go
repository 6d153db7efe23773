// Package styles provides shared lipgloss v2 styles for CLI and TUI components.
package styles

import (
	"image/color"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Exported color aliases for convenience.
var (
	ColorPrimary    color.Color
	ColorSecondary  color.Color
	ColorForeground color.Color
	ColorMuted      color.Color
	ColorBackground color.Color
	ColorSurface    color.Color
	ColorSuccess    color.Color
	ColorWarning    color.Color
	ColorError      color.Color
)

// Style exports.
var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	CommandStyle       lipgloss.Style
	DividerStyle       lipgloss.Style

	// Reader chrome.
	HeaderTitleStyle   lipgloss.Style
	HeaderChapterStyle lipgloss.Style
	FooterStyle        lipgloss.Style
	FooterAccentStyle  lipgloss.Style
	FooterErrorStyle   lipgloss.Style
	GutterStyle        lipgloss.Style

	// Reading lines, keyed by block kind at draw time.
	LineTextStyle    lipgloss.Style
	LineHeadingStyle lipgloss.Style
	LineQuoteStyle   lipgloss.Style
	LineCodeStyle    lipgloss.Style
	LineListStyle    lipgloss.Style
	LineCaptionStyle lipgloss.Style
	ImageFrameStyle  lipgloss.Style

	// Lists and pickers.
	SelectedBorderStyle lipgloss.Style
	ListTitleStyle      lipgloss.Style
	ListMetaStyle       lipgloss.Style
	ViewSelectedStyle   lipgloss.Style
	ViewNormalStyle     lipgloss.Style

	// Overlays.
	ModalStyle      lipgloss.Style
	ModalTitleStyle lipgloss.Style
	ModalHelpStyle  lipgloss.Style

	HelpKeyStyle  lipgloss.Style
	HelpDescStyle lipgloss.Style

	SpinnerStyle     lipgloss.Style
	TextMutedStyle   lipgloss.Style
	TextErrorStyle   lipgloss.Style
	TextSuccessStyle lipgloss.Style
)

// ColorPool is used for deterministic color hashing of author names.
var ColorPool []color.Color

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorForeground = p.Foreground
	ColorMuted = p.Muted
	ColorBackground = p.Background
	ColorSurface = p.Surface
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	CommandStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	DividerStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	HeaderTitleStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)
	HeaderChapterStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	FooterStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	FooterAccentStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary)
	FooterErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)
	GutterStyle = lipgloss.NewStyle().
		Foreground(ColorSurface)

	LineTextStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	LineHeadingStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	LineQuoteStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Italic(true)
	LineCodeStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary)
	LineListStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	LineCaptionStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Italic(true)
	ImageFrameStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	SelectedBorderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary)
	ListTitleStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)
	ListMetaStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	ViewSelectedStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	ViewNormalStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)
	ModalTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorForeground)
	ModalHelpStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary)
	HelpDescStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary)
	TextMutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	TextErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError)
	TextSuccessStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	ColorPool = []color.Color{
		ColorPrimary,
		ColorSecondary,
		ColorSuccess,
		ColorWarning,
		ColorError,
		ColorMuted,
	}
}

// ColorForString returns a deterministic color for a given string.
// The same string always produces the same color.
func ColorForString(s string) color.Color {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return ColorPool[hash%uint32(len(ColorPool))]
}

// ProgressBlend maps reading progress in [0, 1] onto a color between
// the muted and success colors of the active palette.
func ProgressBlend(t float64) color.Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	from, ok1 := colorful.MakeColor(ColorMuted)
	to, ok2 := colorful.MakeColor(ColorSuccess)
	if !ok1 || !ok2 {
		return ColorSuccess
	}
	return lipgloss.Color(from.BlendLuv(to, t).Clamped().Hex())
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
