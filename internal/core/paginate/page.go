// Package paginate turns wrapped chapter lines into page maps and serves
// page lookups over them. A page map is the complete pagination of one
// document under one layout: every chapter tiled into contiguous,
// non-overlapping line ranges with at least one page per chapter.
package paginate

import (
	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
)

// Mode selects the pagination strategy.
type Mode string

const (
	// ModeAbsolute pages by a fixed line stride. Offsets are stable and
	// content kinds are ignored, which keeps scrolling arithmetic exact.
	ModeAbsolute Mode = "absolute"
	// ModeDynamic packs lines greedily up to the page height and keeps
	// image blocks whole.
	ModeDynamic Mode = "dynamic"
)

func (m Mode) Valid() bool {
	return m == ModeAbsolute || m == ModeDynamic
}

// Page is one screenful of a chapter, addressed by an inclusive range into
// the chapter's wrapped lines.
type Page struct {
	Chapter        int
	PageInChapter  int
	PagesInChapter int
	StartLine      int
	EndLine        int

	// GlobalIndex is the page's position in flat document order. It is
	// assigned when the map is assembled, never persisted.
	GlobalIndex int

	// Lines holds the page's content once hydrated by Index.GetPage.
	// Pages stored inside a PageMap keep this nil.
	Lines []content.Line
}

// PageMap is the pagination of a whole document for one mode and layout
// signature.
type PageMap struct {
	Mode      Mode
	Signature layout.Signature
	Pages     []Page

	spans []chapterSpan
}

type chapterSpan struct {
	first int // global index of the chapter's first page
	count int
}

// newPageMap assembles pages, already sorted by chapter, into a map,
// assigning global indexes and the per-chapter span table that backs all
// aggregate lookups.
func newPageMap(mode Mode, sig layout.Signature, pages []Page) *PageMap {
	m := &PageMap{Mode: mode, Signature: sig, Pages: pages}
	for i := range m.Pages {
		m.Pages[i].GlobalIndex = i
		c := m.Pages[i].Chapter
		for len(m.spans) <= c {
			m.spans = append(m.spans, chapterSpan{first: i})
		}
		m.spans[c].count++
	}
	return m
}

// Len returns the number of pages in the map.
func (m *PageMap) Len() int { return len(m.Pages) }

// Chapters returns the number of chapters the map covers.
func (m *PageMap) Chapters() int { return len(m.spans) }

// ChapterSpan returns the global index of a chapter's first page and the
// number of pages in the chapter.
func (m *PageMap) ChapterSpan(chapter int) (first, count int, ok bool) {
	if chapter < 0 || chapter >= len(m.spans) {
		return 0, 0, false
	}
	s := m.spans[chapter]
	return s.first, s.count, true
}
