package content

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/pkg/kv"
)

// TextSource is the rich line source for markdown documents. Chapters
// are rendered through glamour at the column width; the styled output
// lines become the stream directly. The renderer's output for a fixed
// input and width is stable, which is all pagination needs.
type TextSource struct {
	doc   book.Document
	log   zerolog.Logger
	cache *kv.Store[lineKey, []Line]
}

// NewTextSource builds a TextSource over doc.
func NewTextSource(doc book.Document, logger zerolog.Logger) *TextSource {
	return &TextSource{
		doc:   doc,
		log:   logger,
		cache: kv.New[lineKey, []Line](),
	}
}

// Lines renders the chapter markdown and returns its display lines.
func (t *TextSource) Lines(chapter, width int) ([]Line, error) {
	if width < 1 {
		width = 1
	}

	key := lineKey{chapter: chapter, width: width}
	if lines, ok := t.cache.Get(key); ok {
		return lines, nil
	}

	ch, err := t.doc.Chapter(chapter)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", chapter, err)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}

	rendered, err := r.Render(string(ch.Content))
	if err != nil {
		return nil, fmt.Errorf("render chapter %d: %w", chapter, err)
	}

	lines := styledLines(rendered)
	t.cache.Set(key, lines)
	return lines, nil
}

// Window returns length lines starting at offset, clamped to the
// chapter.
func (t *TextSource) Window(chapter, width, offset, length int) ([]Line, error) {
	lines, err := t.Lines(chapter, width)
	if err != nil {
		return nil, err
	}
	return window(lines, offset, length), nil
}

// styledLines splits rendered output into lines, tagging visually
// empty ones. Styled text keeps its escapes; emptiness is judged on
// the stripped text.
func styledLines(rendered string) []Line {
	parts := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	lines := make([]Line, 0, len(parts))
	for _, p := range parts {
		kind := KindText
		if strings.TrimSpace(ansi.Strip(p)) == "" {
			kind = KindBlank
		}
		lines = append(lines, Line{Text: p, Kind: kind})
	}
	return lines
}
