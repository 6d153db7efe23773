package paginate

import (
	"sort"
	"sync"

	"github.com/lecternapp/lectern/internal/core/layout"
)

// Index serves page lookups over the currently adopted map. It is safe for
// concurrent use: Adopt swaps the map in wholesale, which also replaces
// the span table every aggregate answer derives from, so stale totals
// cannot survive a rebuild.
type Index struct {
	mu      sync.RWMutex
	sources Sources
	width   int
	m       *PageMap
}

func NewIndex(sources Sources) *Index {
	return &Index{sources: sources}
}

// Adopt replaces the served map. width is the column width the map was
// built at and is used to hydrate page content.
func (ix *Index) Adopt(m *PageMap, width int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.m = m
	ix.width = width
}

// Ready reports whether a map has been adopted.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.m != nil
}

// Mode returns the strategy of the adopted map, or "" when none is.
func (ix *Index) Mode() Mode {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return ""
	}
	return ix.m.Mode
}

// Signature returns the layout signature of the adopted map, or "" when
// none is. Callers compare it against the wanted signature to decide
// whether the map is stale.
func (ix *Index) Signature() layout.Signature {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return ""
	}
	return ix.m.Signature
}

// TotalPages returns the number of pages across the whole document.
func (ix *Index) TotalPages() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return 0
	}
	return len(ix.m.Pages)
}

// PagesForChapter returns the chapter's page count, or 0 for a chapter the
// map does not cover.
func (ix *Index) PagesForChapter(chapter int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return 0
	}
	_, count, ok := ix.m.ChapterSpan(chapter)
	if !ok {
		return 0
	}
	return count
}

// GlobalPageNumber converts a chapter-relative page to the 1-based page
// number shown to the reader, or 0 when the map is empty.
func (ix *Index) GlobalPageNumber(chapter, pageInChapter int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return 0
	}
	first, count, ok := ix.m.ChapterSpan(chapter)
	if !ok || count == 0 {
		return 0
	}
	if pageInChapter < 0 {
		pageInChapter = 0
	}
	if pageInChapter > count-1 {
		pageInChapter = count - 1
	}
	return first + pageInChapter + 1
}

// GetPage returns the page at global index i with its content hydrated.
// Out-of-range indexes clamp to the nearest valid page; false is returned
// only when no map is adopted or the map is empty.
func (ix *Index) GetPage(i int) (Page, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil || len(ix.m.Pages) == 0 {
		return Page{}, false
	}
	if i < 0 {
		i = 0
	}
	if i > len(ix.m.Pages)-1 {
		i = len(ix.m.Pages) - 1
	}
	p := ix.m.Pages[i]
	p.Lines = ix.sources.Window(p.Chapter, ix.width, p.StartLine, p.EndLine-p.StartLine+1)
	return p, true
}

// FindPageIndex returns the global index of the first page in the chapter
// whose range reaches lineOffset, or the chapter's last page when the
// offset lies beyond it. Chapters outside the map clamp to the nearest
// covered chapter.
func (ix *Index) FindPageIndex(chapter, lineOffset int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil || len(ix.m.Pages) == 0 {
		return 0
	}
	if chapter < 0 {
		chapter = 0
	}
	if last := len(ix.m.spans) - 1; chapter > last {
		chapter = last
	}
	first, count, _ := ix.m.ChapterSpan(chapter)
	pos := sort.Search(count, func(j int) bool {
		return ix.m.Pages[first+j].EndLine >= lineOffset
	})
	if pos == count {
		pos = count - 1
	}
	return first + pos
}

// MaxOffset returns the highest valid top-of-page line offset in the
// chapter: the start line of its final page. Offsets and page boundaries
// share the adopted map as their single source of truth, so the clamp
// used by navigation can never disagree with the tiling.
func (ix *Index) MaxOffset(chapter int) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.m == nil {
		return 0
	}
	first, count, ok := ix.m.ChapterSpan(chapter)
	if !ok || count == 0 {
		return 0
	}
	return ix.m.Pages[first+count-1].StartLine
}
