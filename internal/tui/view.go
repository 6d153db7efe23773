package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"github.com/lecternapp/lectern/internal/core/styles"
)

// View renders the screen for the current state, with modal overlays
// composited on top.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	w, h := m.width, m.height
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	var base string
	switch {
	case m.state == stateLibrary || (m.state == stateHelp && m.returnState == stateLibrary):
		base = m.libraryView(w, h)
	case m.state == stateLoading:
		base = m.loadingView(w, h)
	default:
		base = m.readingView(w, h)
	}

	content := base
	switch m.state {
	case stateHelp:
		content = overlayCenter(base, m.helpOverlay(), w, h)
	case stateGoto:
		content = overlayCenter(base, m.gotoOverlay(), w, h)
	case stateTOC:
		content = overlayCenter(base, m.tocOverlay(w, h), w, h)
	}

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// overlayCenter composites the overlay box centered over the
// background.
func overlayCenter(background, overlay string, w, h int) string {
	bgLayer := lipgloss.NewLayer(background)
	fgLayer := lipgloss.NewLayer(overlay)
	fgLayer.X(max((w-lipgloss.Width(overlay))/2, 0)).
		Y(max((h-lipgloss.Height(overlay))/2, 0)).
		Z(1)
	return lipgloss.NewCompositor(bgLayer, fgLayer).Render()
}

// libraryView renders the book list with a header bar and a hint
// footer.
func (m Model) libraryView(w, h int) string {
	count := len(m.list.Items())
	meta := fmt.Sprintf("%d books", count)
	if count == 1 {
		meta = "1 book"
	}
	header := barLine(
		styles.HeaderTitleStyle.Render(styles.IconBook+" Lectern"),
		styles.HeaderChapterStyle.Render(meta),
		w,
	)
	divider := styles.DividerStyle.Render(strings.Repeat("─", max(w, 1)))
	contentH := max(h-4, 1)

	var body string
	if count == 0 {
		body = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Center,
			styles.TextMutedStyle.Render("Library is empty. Configure library.paths and press r to scan."))
	} else {
		body = m.list.View()
		if m.list.SettingFilter() {
			body = lipgloss.JoinVertical(lipgloss.Left, m.list.FilterInput.View(), body)
		}
		body = clampHeight(body, contentH)
	}

	hints := styles.FooterStyle.Render("enter open · / filter · r scan · ? help · q quit")
	var status string
	switch {
	case m.status != "" && m.statusErr:
		status = styles.FooterErrorStyle.Render(styles.IconWarning + " " + m.status)
	case m.status != "":
		status = styles.FooterStyle.Render(styles.IconInfo + " " + m.status)
	}
	footer := barLine(hints, status, w)

	return strings.Join([]string{header, divider, body, divider, footer}, "\n")
}

// loadingView shows the spinner and, while a build is streaming, the
// chapter progress.
func (m Model) loadingView(w, h int) string {
	msg := m.loadingMsg
	if msg == "" {
		msg = "Loading"
	}
	line := m.spinner.View() + " " + msg
	if m.total > 0 {
		line += styles.TextMutedStyle.Render(fmt.Sprintf(" (%d/%d chapters)", m.built, m.total))
	}
	hint := styles.TextMutedStyle.Render("esc cancel · q quit")
	box := lipgloss.JoinVertical(lipgloss.Center, line, "", hint)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, box)
}

// helpOverlay renders the key reference for the state it was opened
// from.
func (m Model) helpOverlay() string {
	title := "Library keys"
	entries := libraryHelp
	if m.returnState == stateReading {
		title = "Reading keys"
		entries = readingHelp
	}
	box := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render(title),
		"",
		renderHelp(entries),
		styles.ModalHelpStyle.Render("press any key to close"),
	)
	return styles.ModalStyle.Render(box)
}

func (m Model) gotoOverlay() string {
	box := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render("Go to page"),
		"",
		m.gotoInput.View(),
		styles.ModalHelpStyle.Render("enter: go · esc: cancel"),
	)
	return styles.ModalStyle.Render(box)
}

// tocOverlay renders a scrolling window of chapter titles around the
// cursor.
func (m Model) tocOverlay(w, h int) string {
	titles := m.reading.ChapterTitles()
	maxRows := min(len(titles), max(h-8, 3))

	start := m.tocIndex - maxRows/2
	if start > len(titles)-maxRows {
		start = len(titles) - maxRows
	}
	if start < 0 {
		start = 0
	}

	maxWidth := min(max(w-20, 20), 60)
	rows := make([]string, 0, maxRows)
	for i := start; i < start+maxRows; i++ {
		label := fmt.Sprintf("%3d  %s", i+1, truncate(titles[i], maxWidth))
		if i == m.tocIndex {
			rows = append(rows, styles.ViewSelectedStyle.Render("┃ "+label))
		} else {
			rows = append(rows, styles.ViewNormalStyle.Render("  "+label))
		}
	}

	box := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render(styles.IconList+" Contents"),
		"",
		strings.Join(rows, "\n"),
		styles.ModalHelpStyle.Render("enter: go · esc: close"),
	)
	return styles.ModalStyle.Render(box)
}

// clampHeight pads or crops a block to exactly rows lines.
func clampHeight(s string, rows int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// barLine lays out left and right segments on one row with the gap
// between them.
func barLine(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, w int) string {
	return runewidth.Truncate(s, w, "…")
}
