package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"

	"github.com/lecternapp/lectern/internal/core/styles"
)

// helpEntry is one row of the help overlay.
type helpEntry struct {
	keys string
	desc string
}

var libraryHelp = []helpEntry{
	{"enter / o", "open book"},
	{"/", "filter"},
	{"r", "rescan library paths"},
	{"?", "help"},
	{"q", "quit"},
}

var readingHelp = []helpEntry{
	{"→ / l / space", "next page"},
	{"← / h", "previous page"},
	{"↓ / j, ↑ / k", "scroll one line (absolute mode)"},
	{"] / n, [ / p", "next / previous chapter"},
	{"g", "go to page"},
	{"home / end", "start / end of book"},
	{"t", "table of contents"},
	{"v", "toggle single / split columns"},
	{"m", "toggle dynamic / absolute pagination"},
	{"esc / b", "back to library"},
	{"q", "quit"},
}

// listShortHelp returns the minimal bindings surfaced by the library
// list's built-in help line.
func listShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "navigate")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// renderHelp lays the entries out as an aligned two-column block.
func renderHelp(entries []helpEntry) string {
	keyWidth := 0
	for _, e := range entries {
		if w := len([]rune(e.keys)); w > keyWidth {
			keyWidth = w
		}
	}

	rows := make([]string, 0, len(entries))
	for _, e := range entries {
		pad := strings.Repeat(" ", keyWidth-len([]rune(e.keys)))
		rows = append(rows, styles.HelpKeyStyle.Render(e.keys)+pad+"  "+styles.HelpDescStyle.Render(e.desc))
	}
	return strings.Join(rows, "\n")
}
