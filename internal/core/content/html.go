package content

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/pkg/kv"
)

// Options configure how a Formatter turns markup into lines.
type Options struct {
	// Images enables inline image blocks. Off, images collapse to a
	// one-line placeholder. This must match the image flag baked into
	// the layout signature or cached pagination will not line up.
	Images bool

	// Justify pads paragraph lines to the full column width. Only the
	// spacing inside a line changes, so wrap points and line counts are
	// identical either way and pagination does not need to know.
	Justify bool

	// Cell is the terminal cell size used for image scaling.
	Cell CellSize

	Logger zerolog.Logger
}

type lineKey struct {
	chapter int
	width   int
}

// Formatter is the rich line source for markup documents: it parses
// chapter XHTML into blocks, wraps them to the column width, and
// measures inline images into cell blocks. Results are memoized per
// (chapter, width).
type Formatter struct {
	doc   book.Document
	opts  Options
	cache *kv.Store[lineKey, []Line]
}

// NewFormatter builds a Formatter over doc.
func NewFormatter(doc book.Document, opts Options) *Formatter {
	return &Formatter{
		doc:   doc,
		opts:  opts,
		cache: kv.New[lineKey, []Line](),
	}
}

// Lines returns the full wrapped line stream for one chapter. A failed
// chapter read or parse returns an error; callers with a fallback
// source decide what happens next.
func (f *Formatter) Lines(chapter, width int) ([]Line, error) {
	if width < 1 {
		width = 1
	}

	key := lineKey{chapter: chapter, width: width}
	if lines, ok := f.cache.Get(key); ok {
		return lines, nil
	}

	ch, err := f.doc.Chapter(chapter)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", chapter, err)
	}

	blocks, err := parseBlocks(ch.Content)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", chapter, err)
	}

	lines := f.assemble(chapter, ch.Href, blocks, width)
	f.cache.Set(key, lines)
	return lines, nil
}

// Window returns length lines starting at offset, clamped to the
// chapter. The underlying chapter is memoized, so windows after the
// first are slice views.
func (f *Formatter) Window(chapter, width, offset, length int) ([]Line, error) {
	lines, err := f.Lines(chapter, width)
	if err != nil {
		return nil, err
	}
	return window(lines, offset, length), nil
}

// assemble wraps blocks into display lines with a single blank line
// between blocks.
func (f *Formatter) assemble(chapter int, baseHref string, blocks []block, width int) []Line {
	var (
		lines []Line
		seq   int
	)

	appendBlock := func(bl []Line) {
		if len(bl) == 0 {
			return
		}
		if len(lines) > 0 {
			lines = append(lines, Line{Kind: KindBlank})
		}
		lines = append(lines, bl...)
	}

	for _, b := range blocks {
		switch b.kind {
		case blockParagraph:
			para := wrapText(b.text, width, KindText)
			if f.opts.Justify {
				justifyBlock(para, width)
			}
			appendBlock(para)
		case blockHeading:
			appendBlock(wrapText(b.text, width, KindHeading))
		case blockQuote:
			appendBlock(wrapQuote(b.text, width))
		case blockCode:
			appendBlock(wrapCode(b.text, width))
		case blockList:
			appendBlock(wrapList(b, width))
		case blockCaption:
			appendBlock(wrapText(b.text, width, KindCaption))
		case blockImage:
			appendBlock(f.imageLines(chapter, baseHref, b, width, &seq))
		}
	}
	return lines
}

// wrapText word-wraps then hard-wraps, so no emitted line ever exceeds
// the column width even when a single word does.
func wrapText(text string, width int, kind BlockKind) []Line {
	wrapped := wrap.String(wordwrap.String(text, width), width)
	return toLines(wrapped, kind)
}

// justifyBlock stretches every paragraph line except the last to the
// full width by widening interior gaps, left gaps first. The final line
// stays ragged, as does any line without at least two words.
func justifyBlock(lines []Line, width int) {
	for i := range lines {
		if i == len(lines)-1 {
			break
		}
		lines[i].Text = justifyLine(lines[i].Text, width)
	}
}

func justifyLine(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}

	words := strings.Fields(s)
	if len(words) < 2 {
		return s
	}

	slots := len(words) - 1
	base := gap / slots
	extra := gap % slots

	var b strings.Builder
	b.WriteString(words[0])
	for i, w := range words[1:] {
		pad := 1 + base
		if i < extra {
			pad++
		}
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(w)
	}
	return b.String()
}

// wrapQuote indents quoted text behind a bar prefix.
func wrapQuote(text string, width int) []Line {
	const prefix = "│ "
	inner := wrapText(text, max(width-2, 1), KindQuote)
	for i := range inner {
		inner[i].Text = prefix + inner[i].Text
	}
	return inner
}

// wrapCode hard-wraps without touching word boundaries; code and table
// rows keep their own spacing.
func wrapCode(text string, width int) []Line {
	return toLines(wrap.String(text, width), KindCode)
}

// wrapList renders entries with hanging indents. Top-level ordered
// entries get numbers, everything else gets bullets.
func wrapList(b block, width int) []Line {
	var lines []Line
	counter := 0
	for _, entry := range b.items {
		indent := strings.Repeat("  ", entry.depth)
		marker := "• "
		if b.ordered && entry.depth == 0 {
			counter++
			marker = strconv.Itoa(counter) + ". "
		}

		prefix := indent + marker
		hang := strings.Repeat(" ", runewidth.StringWidth(prefix))

		inner := wrapText(entry.text, max(width-runewidth.StringWidth(prefix), 1), KindListItem)
		for i := range inner {
			if i == 0 {
				inner[i].Text = prefix + inner[i].Text
			} else {
				inner[i].Text = hang + inner[i].Text
			}
		}
		lines = append(lines, inner...)
	}
	return lines
}

// imageLines emits an image block: one KindImage line followed by
// spacer lines, all sharing one ImageRef. Anything that prevents
// measuring (remote URL, missing resource, undecodable data) degrades
// to a text placeholder so pagination stays deterministic.
func (f *Formatter) imageLines(chapter int, baseHref string, b block, width int, seq *int) []Line {
	if !f.opts.Images {
		return wrapText(imagePlaceholder(b), width, KindText)
	}

	href, ok := resolveResource(baseHref, b.src)
	if !ok {
		return wrapText(imagePlaceholder(b), width, KindText)
	}

	data, err := f.doc.Resource(href)
	if err != nil {
		f.opts.Logger.Debug().Err(err).Str("href", href).Msg("image resource unavailable")
		return wrapText(imagePlaceholder(b), width, KindText)
	}

	cols, rows, err := measureImage(data, f.opts.Cell, width)
	if err != nil {
		f.opts.Logger.Debug().Err(err).Str("href", href).Msg("image not measurable")
		return wrapText(imagePlaceholder(b), width, KindText)
	}

	ref := &ImageRef{
		Href:      href,
		Cols:      cols,
		Rows:      rows,
		Placement: placementID(chapter, href, *seq),
	}
	*seq++

	lines := make([]Line, rows)
	lines[0] = Line{Kind: KindImage, Image: ref}
	for i := 1; i < rows; i++ {
		lines[i] = Line{Kind: KindImageSpacer, Image: ref}
	}
	return lines
}

func imagePlaceholder(b block) string {
	if b.alt != "" {
		return "[image: " + b.alt + "]"
	}
	return "[image]"
}

// resolveResource joins an image src onto the chapter's directory
// inside the container. Remote URLs are not fetched.
func resolveResource(baseHref, src string) (string, bool) {
	if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return "", false
	}
	if strings.HasPrefix(src, "/") {
		return path.Clean(strings.TrimPrefix(src, "/")), true
	}
	return path.Join(path.Dir(baseHref), src), true
}

// placementID derives a stable identifier for one image occurrence.
// Identical inputs always produce the identical ID, which keeps
// graphics placements addressable across rebuilds.
func placementID(chapter int, href string, seq int) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%s:%d", chapter, href, seq)
	return h.Sum32()
}

func toLines(wrapped string, kind BlockKind) []Line {
	parts := strings.Split(wrapped, "\n")
	lines := make([]Line, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, Line{Text: p, Kind: kind})
	}
	return lines
}
