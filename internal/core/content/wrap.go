package content

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/pkg/kv"
)

// Wrapper is the fallback line source: a naive word-wrap over a
// chapter's plain text. It exists so pagination always has something
// to stand on when the rich source fails, and therefore never returns
// an error itself. An unreadable chapter yields zero lines.
type Wrapper struct {
	doc   book.Document
	log   zerolog.Logger
	cache *kv.Store[lineKey, []Line]
}

// NewWrapper builds the fallback source over doc.
func NewWrapper(doc book.Document, logger zerolog.Logger) *Wrapper {
	return &Wrapper{
		doc:   doc,
		log:   logger,
		cache: kv.New[lineKey, []Line](),
	}
}

// Lines returns the naively wrapped chapter text. The error is always
// nil; it is present to satisfy LineSource.
func (w *Wrapper) Lines(chapter, width int) ([]Line, error) {
	if width < 1 {
		width = 1
	}

	key := lineKey{chapter: chapter, width: width}
	if lines, ok := w.cache.Get(key); ok {
		return lines, nil
	}

	ch, err := w.doc.Chapter(chapter)
	if err != nil {
		w.log.Warn().Err(err).Int("chapter", chapter).Msg("fallback wrap: chapter unreadable")
		w.cache.Set(key, nil)
		return nil, nil
	}

	var lines []Line
	switch w.doc.Format() {
	case book.FormatMarkdown:
		lines = wrapPlainLines(string(ch.Content), width)
	default:
		lines = wrapText(normalizeSpace(stripMarkup(ch.Content)), width, KindText)
	}
	if len(lines) == 1 && lines[0].Text == "" {
		lines = nil
	}

	w.cache.Set(key, lines)
	return lines, nil
}

// Window returns length lines starting at offset, clamped to the
// chapter.
func (w *Wrapper) Window(chapter, width, offset, length int) ([]Line, error) {
	lines, _ := w.Lines(chapter, width)
	return window(lines, offset, length), nil
}

// wrapPlainLines wraps text line by line, preserving blank lines as
// paragraph separators.
func wrapPlainLines(text string, width int) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			if n := len(lines); n > 0 && lines[n-1].Kind != KindBlank {
				lines = append(lines, Line{Kind: KindBlank})
			}
			continue
		}
		lines = append(lines, wrapText(normalizeSpace(raw), width, KindText)...)
	}
	for len(lines) > 0 && lines[len(lines)-1].Kind == KindBlank {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// stripMarkup reduces markup to its body text. The parser tolerates
// any input, so this cannot fail, only degrade.
func stripMarkup(markup []byte) string {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return string(markup)
	}
	if body := findBody(root); body != nil {
		return textContent(body)
	}
	return textContent(root)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if b := findBody(ch); b != nil {
			return b
		}
	}
	return nil
}
