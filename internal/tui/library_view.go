package tui

import (
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	humanize "github.com/dustin/go-humanize"

	"github.com/lecternapp/lectern/internal/core/styles"
	"github.com/lecternapp/lectern/internal/library"
)

// BookItem is one library entry in the book list.
type BookItem struct {
	Book library.Book

	// Progress is the saved completion percentage, valid when HasPos
	// is set. It comes from the position store, not the book file.
	Progress float64
	HasPos   bool
}

// FilterValue allows filtering by title or author.
func (i BookItem) FilterValue() string {
	return i.Book.DisplayTitle() + " " + i.Book.Author
}

// BuildBookItems pairs library entries with their saved reading
// progress, keyed by document hash.
func BuildBookItems(books []library.Book, progress map[string]float64) []list.Item {
	items := make([]list.Item, 0, len(books))
	for _, b := range books {
		item := BookItem{Book: b}
		if p, ok := progress[b.Hash]; ok {
			item.Progress = p
			item.HasPos = true
		}
		items = append(items, item)
	}
	return items
}

// BookDelegateStyles defines the styles for book list rows.
type BookDelegateStyles struct {
	Title          lipgloss.Style
	Selected       lipgloss.Style
	Meta           lipgloss.Style
	SelectedBorder lipgloss.Style
}

// DefaultBookDelegateStyles returns the default styles for book rendering.
func DefaultBookDelegateStyles() BookDelegateStyles {
	return BookDelegateStyles{
		Title:          styles.ListTitleStyle,
		Selected:       lipgloss.NewStyle().Foreground(styles.ColorPrimary).Bold(true),
		Meta:           styles.ListMetaStyle,
		SelectedBorder: styles.SelectedBorderStyle,
	}
}

// BookDelegate renders two-line book entries: title, then author and
// file metadata.
type BookDelegate struct {
	Styles BookDelegateStyles

	// Width is the list width, used to truncate long titles.
	Width int
}

// NewBookDelegate creates a delegate with default styles.
func NewBookDelegate() BookDelegate {
	return BookDelegate{Styles: DefaultBookDelegateStyles()}
}

// Height returns the height of each item.
func (d BookDelegate) Height() int { return 2 }

// Spacing returns the blank lines between items.
func (d BookDelegate) Spacing() int { return 1 }

// Update handles item updates.
func (d BookDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render renders a single book entry.
func (d BookDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	book, ok := item.(BookItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	titleStyle := d.Styles.Title
	prefix := "  "
	if isSelected {
		titleStyle = d.Styles.Selected
		prefix = d.Styles.SelectedBorder.Render("┃") + " "
	}

	maxWidth := d.Width - 4
	if maxWidth < 16 {
		maxWidth = 16
	}

	title := titleStyle.Render(truncate(book.Book.DisplayTitle(), maxWidth))

	author := book.Book.Author
	if author == "" {
		author = "unknown author"
	}
	authorStr := lipgloss.NewStyle().
		Foreground(styles.ColorForString(author)).
		Render(truncate(author, maxWidth/2))

	meta := d.Styles.Meta.Render(" · " + bookMeta(book.Book))

	progress := ""
	if book.HasPos {
		progress = d.Styles.Meta.Render(" · ") + lipgloss.NewStyle().
			Foreground(styles.ProgressBlend(book.Progress/100)).
			Render(fmt.Sprintf("%s %.0f%%", styles.IconBookmark, book.Progress))
	}

	_, _ = fmt.Fprintf(w, "%s%s\n%s%s%s%s", prefix, title, prefix, authorStr, meta, progress)
}

// bookMeta formats the secondary line: format, chapter count, size,
// and when the book was last opened.
func bookMeta(b library.Book) string {
	parts := []string{
		string(b.Format),
		fmt.Sprintf("%d chapters", b.Chapters),
	}
	if b.SizeBytes > 0 {
		parts = append(parts, humanize.Bytes(uint64(b.SizeBytes)))
	}
	if b.LastOpenedAt != nil {
		parts = append(parts, styles.IconClock+" "+humanize.Time(*b.LastOpenedAt))
	}
	return strings.Join(parts, " · ")
}
