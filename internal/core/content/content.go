// Package content turns chapter markup into the flat stream of display
// lines that pagination and rendering both consume.
//
// Everything downstream depends on one contract: for a fixed document,
// chapter, wrap width, and image setting, a source always produces the
// identical line slice. Page maps store line offsets into that slice,
// so any nondeterminism here corrupts every saved position and cached
// pagination.
package content

import "github.com/lecternapp/lectern/internal/book"

// BlockKind classifies a display line by the block element it came
// from. The renderer styles lines by kind; pagination only cares about
// the image kinds.
type BlockKind uint8

const (
	KindText BlockKind = iota
	KindHeading
	KindQuote
	KindCode
	KindListItem
	KindCaption
	KindBlank
	KindImage
	KindImageSpacer
)

// IsImage reports whether the line is part of an inline image block.
func (k BlockKind) IsImage() bool {
	return k == KindImage || k == KindImageSpacer
}

// ImageRef describes one inline image occurrence. All lines of one
// occurrence share the same *ImageRef, which is what makes an image
// block recognizable as a unit in the stream.
type ImageRef struct {
	// Href is the container-absolute resource path of the image.
	Href string
	// Cols and Rows are the terminal cell footprint after scaling.
	Cols, Rows int
	// Placement distinguishes repeated uses of the same image within a
	// document for graphics protocols that address placements.
	Placement uint32
}

// Line is one display line. Text is plain (unstyled); the renderer
// applies styling by Kind at draw time so that wrap widths computed
// here are exact.
type Line struct {
	Text  string
	Kind  BlockKind
	Image *ImageRef
}

// IsImage reports whether the line belongs to an image block.
func (l Line) IsImage() bool { return l.Kind.IsImage() }

// LineSource produces the wrapped line stream for chapters of one
// document. Implementations memoize per (chapter, width); calls are
// cheap after the first.
//
// Lines returns the full chapter. Window returns length lines starting
// at offset, clamped to the chapter bounds, without requiring callers
// to hold the whole chapter.
type LineSource interface {
	Lines(chapter, width int) ([]Line, error)
	Window(chapter, width, offset, length int) ([]Line, error)
}

// NewSource returns the rich line source for the document's format.
// Format dispatch is explicit here; nothing downstream probes
// documents for capabilities.
func NewSource(doc book.Document, opts Options) LineSource {
	switch doc.Format() {
	case book.FormatMarkdown:
		return NewTextSource(doc, opts.Logger)
	default:
		return NewFormatter(doc, opts)
	}
}

// window clamps [offset, offset+length) to the slice and returns the
// sub-slice. Out-of-range requests return an empty slice rather than
// failing.
func window(lines []Line, offset, length int) []Line {
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}
	if offset >= len(lines) {
		return nil
	}
	end := min(offset+length, len(lines))
	return lines[offset:end]
}
