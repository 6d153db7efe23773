package tui

import (
	"fmt"
	"strings"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/internal/core/styles"
	"github.com/lecternapp/lectern/internal/lectern"
)

// contentTopRow is the 1-based screen row of the first content line.
// Row 1 is the header bar, row 2 the divider.
const contentTopRow = 3

// readingView renders the full reading screen: header bar, page
// content, and a footer with position and progress.
func (m Model) readingView(w, h int) string {
	if m.reading == nil {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
			styles.TextMutedStyle.Render("No book open"))
	}
	spread, ok := m.reading.Current()
	if !ok {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
			styles.TextMutedStyle.Render("No pages yet"))
	}

	title := truncate(m.reading.Title(), max(w/2, 8))
	chapterTitle := truncate(m.reading.ChapterTitle(spread.Chapter), max(w/3, 8))
	header := barLine(
		styles.HeaderTitleStyle.Render(title),
		styles.HeaderChapterStyle.Render(chapterTitle),
		w,
	)

	divider := styles.DividerStyle.Render(strings.Repeat("─", max(w, 1)))

	body := m.renderSpread(spread, w, max(h-layout.ReservedRows, 1))

	pageStr := fmt.Sprintf("p. %d/%d", spread.PageNumber, spread.TotalPages)
	if spread.Right != nil {
		pageStr = fmt.Sprintf("p. %d-%d/%d", spread.PageNumber, spread.PageNumber+1, spread.TotalPages)
	}
	left := styles.FooterAccentStyle.Render(pageStr) +
		styles.FooterStyle.Render(fmt.Sprintf(" · ch %d/%d", spread.Chapter+1, m.reading.ChapterCount()))

	var right string
	switch {
	case m.status != "" && m.statusErr:
		right = styles.FooterErrorStyle.Render(styles.IconWarning + " " + m.status)
	case m.status != "":
		right = styles.FooterStyle.Render(styles.IconInfo + " " + m.status)
	default:
		progress := fmt.Sprintf("%.0f%% · ? help", spread.Percent)
		if m.graphics != nil {
			progress = styles.IconImage + " · " + progress
		}
		right = styles.FooterStyle.Render(progress)
	}
	footer := barLine(left, right, w)

	return strings.Join([]string{header, divider, body, divider, footer}, "\n")
}

// renderSpread lays the spread's columns onto the content area. The
// block is centered by explicit padding so that contentLeft is the
// single source of truth for where text starts; image placements use
// the same origin.
func (m Model) renderSpread(spread lectern.Spread, w, rows int) string {
	metrics := m.reading.Metrics()

	var block string
	if m.reading.View() == layout.ViewSplit {
		left := m.renderColumn(spread.Left, metrics.ColumnWidth)
		var right string
		if spread.Right != nil {
			right = m.renderColumn(*spread.Right, metrics.ColumnWidth)
		}
		gutterRows := max(lipgloss.Height(left), lipgloss.Height(right))
		gutter := make([]string, gutterRows)
		for i := range gutter {
			gutter[i] = styles.GutterStyle.Render(" │  ")
		}
		block = lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Join(gutter, "\n"), right)
	} else {
		block = m.renderColumn(spread.Left, metrics.ColumnWidth)
	}

	pad := strings.Repeat(" ", m.contentLeft())
	lines := strings.Split(block, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pad)
		b.WriteString(line)
	}
	return lipgloss.Place(w, rows, lipgloss.Left, lipgloss.Top, b.String())
}

// contentLeft returns the 0-based screen column where the content
// block starts.
func (m Model) contentLeft() int {
	metrics := m.reading.Metrics()
	block := metrics.ColumnWidth
	if m.reading.View() == layout.ViewSplit {
		block = 2*metrics.ColumnWidth + layout.GutterWidth
	}
	return max((m.width-block)/2, 0)
}

// renderColumn renders one page into a fixed-width column. Relaxed
// spacing interleaves a blank row after every line; the paginator
// budgeted half the rows for exactly that.
func (m Model) renderColumn(page paginate.Page, width int) string {
	relaxed := m.reading.Spacing() == layout.SpacingRelaxed

	rows := make([]string, 0, len(page.Lines)*2)
	for _, l := range page.Lines {
		rows = append(rows, renderLine(l, width))
		if relaxed {
			rows = append(rows, "")
		}
	}
	return strings.Join(rows, "\n")
}

// renderLine styles one display line and pads it to the column width.
// Markdown lines arrive pre-styled and pass through untouched; plain
// lines are tinted by kind.
func renderLine(l content.Line, width int) string {
	if l.Kind == content.KindImage {
		// First row of an image block. The frame marks the spot when
		// the graphics protocol is off or the image failed to place.
		return lipgloss.PlaceHorizontal(width, lipgloss.Center,
			styles.ImageFrameStyle.Render("[ image ]"))
	}
	if l.Kind == content.KindImageSpacer {
		return ""
	}
	if l.Text == "" {
		return ""
	}

	text := l.Text
	if !strings.ContainsRune(text, '\x1b') {
		text = kindStyle(l.Kind).Render(text)
	}
	text = ansi.Truncate(text, width, "")
	if gap := width - lipgloss.Width(text); gap > 0 {
		text += strings.Repeat(" ", gap)
	}
	return text
}

func kindStyle(k content.BlockKind) lipgloss.Style {
	switch k {
	case content.KindHeading:
		return styles.LineHeadingStyle
	case content.KindQuote:
		return styles.LineQuoteStyle
	case content.KindCode:
		return styles.LineCodeStyle
	case content.KindListItem:
		return styles.LineListStyle
	case content.KindCaption:
		return styles.LineCaptionStyle
	default:
		return styles.LineTextStyle
	}
}

// graphicsFrame builds the escape payload for the current spread:
// clear the previous placements, then place each fully visible image
// at its anchor cell.
func (m Model) graphicsFrame() string {
	spread, ok := m.reading.Current()
	if !ok {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.graphics.Clear())

	metrics := m.reading.Metrics()
	x0 := m.contentLeft()
	m.placeImages(&sb, spread.Left, x0, metrics.ColumnWidth)
	if spread.Right != nil {
		m.placeImages(&sb, *spread.Right, x0+metrics.ColumnWidth+layout.GutterWidth, metrics.ColumnWidth)
	}
	return sb.String()
}

// placeImages emits a placement for every image block anchored in the
// page window. A block whose KindImage row is scrolled above the
// window stays unplaced, and one that would overrun the footer is
// skipped rather than clipped.
func (m Model) placeImages(sb *strings.Builder, page paginate.Page, x0, colWidth int) {
	stride := 1
	if m.reading.Spacing() == layout.SpacingRelaxed {
		stride = 2
	}

	for i, l := range page.Lines {
		if l.Kind != content.KindImage || l.Image == nil {
			continue
		}
		ref := l.Image

		row := contentTopRow + i*stride
		if row+ref.Rows-1 > m.height-2 {
			continue
		}
		col := x0 + max((colWidth-ref.Cols)/2, 0) + 1
		sb.WriteString(m.graphics.Place(ref, row, col))
	}
}
