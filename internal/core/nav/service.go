package nav

import (
	"fmt"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// singleStride is the line stride for single-view absolute paging.
func singleStride(nc Context) int {
	s := nc.LinesPerPage
	if s < 1 {
		s = nc.ColumnLinesPerPage
	}
	return max(s, 1)
}

// splitStride is the per-column line stride for split-view absolute
// paging; the right column always sits one stride past the left.
func splitStride(nc Context) int {
	s := nc.ColumnLinesPerPage
	if s < 1 {
		s = nc.LinesPerPage
	}
	return max(s, 1)
}

// NextPage advances one screen. In dynamic mode the flat cursor steps by
// one page (two in split view) and clamps at the end. In absolute mode
// the offset advances by the view's stride up to the chapter's max
// offset; a further advance from the max signals a chapter crossing when
// chapters remain.
func NextPage(nc Context) PositionUpdate {
	if nc.Mode == paginate.ModeDynamic {
		return dynamicStep(nc, +1)
	}
	if nc.View == layout.ViewSplit {
		return absoluteSplitStep(nc, +1)
	}
	return absoluteSingleStep(nc, +1)
}

// PrevPage mirrors NextPage toward the front of the document.
func PrevPage(nc Context) PositionUpdate {
	if nc.Mode == paginate.ModeDynamic {
		return dynamicStep(nc, -1)
	}
	if nc.View == layout.ViewSplit {
		return absoluteSplitStep(nc, -1)
	}
	return absoluteSingleStep(nc, -1)
}

func dynamicStep(nc Context, dir int) PositionUpdate {
	if nc.TotalPages < 1 {
		return PositionUpdate{}
	}
	step := 1
	if nc.View == layout.ViewSplit {
		// Skip the paired column so the right page becomes unread next.
		step = 2
	}
	target := clamp(nc.PageIndex+dir*step, 0, nc.TotalPages-1)
	if target == nc.PageIndex {
		return PositionUpdate{}
	}
	return PositionUpdate{PageIndex: ptr(target)}
}

func absoluteSingleStep(nc Context, dir int) PositionUpdate {
	stride := singleStride(nc)
	if dir > 0 {
		if nc.SinglePage >= nc.MaxOffset {
			if nc.Chapter < nc.Chapters-1 {
				return PositionUpdate{AdvanceChapter: AdvanceNext}
			}
			return PositionUpdate{}
		}
		return PositionUpdate{SinglePage: ptr(min(nc.SinglePage+stride, nc.MaxOffset))}
	}
	if nc.SinglePage <= 0 {
		if nc.Chapter > 0 {
			return PositionUpdate{AdvanceChapter: AdvancePrev}
		}
		return PositionUpdate{}
	}
	return PositionUpdate{SinglePage: ptr(max(nc.SinglePage-stride, 0))}
}

func absoluteSplitStep(nc Context, dir int) PositionUpdate {
	stride := splitStride(nc)
	if dir > 0 {
		if nc.LeftPage >= nc.MaxOffset {
			if nc.Chapter < nc.Chapters-1 {
				return PositionUpdate{AdvanceChapter: AdvanceNext}
			}
			return PositionUpdate{}
		}
		left := min(nc.LeftPage+stride, nc.MaxOffset)
		return PositionUpdate{LeftPage: ptr(left), RightPage: ptr(left + stride)}
	}
	if nc.LeftPage <= 0 {
		if nc.Chapter > 0 {
			return PositionUpdate{AdvanceChapter: AdvancePrev}
		}
		return PositionUpdate{}
	}
	left := max(nc.LeftPage-stride, 0)
	return PositionUpdate{LeftPage: ptr(left), RightPage: ptr(left + stride)}
}

// Scroll moves the absolute-mode offset by an arbitrary line count,
// clamped to the chapter. The result is empty when the clamped target
// equals the current offset, and also in dynamic mode, which has no line
// cursor to scroll. Negative amounts and unknown directions are rejected.
func Scroll(nc Context, dir ScrollDirection, lines int) (PositionUpdate, error) {
	if lines < 0 {
		return PositionUpdate{}, fmt.Errorf("nav: scroll amount must be non-negative, got %d", lines)
	}
	if dir != ScrollUp && dir != ScrollDown {
		return PositionUpdate{}, fmt.Errorf("nav: unknown scroll direction %q", dir)
	}
	if nc.Mode != paginate.ModeAbsolute {
		return PositionUpdate{}, nil
	}
	delta := lines
	if dir == ScrollUp {
		delta = -lines
	}
	if nc.View == layout.ViewSplit {
		target := clamp(nc.LeftPage+delta, 0, nc.MaxOffset)
		if target == nc.LeftPage {
			return PositionUpdate{}, nil
		}
		return PositionUpdate{LeftPage: ptr(target), RightPage: ptr(target + splitStride(nc))}, nil
	}
	target := clamp(nc.SinglePage+delta, 0, nc.MaxOffset)
	if target == nc.SinglePage {
		return PositionUpdate{}, nil
	}
	return PositionUpdate{SinglePage: ptr(target)}, nil
}

// JumpToChapter validates the target chapter and positions at its start.
// In dynamic mode only the chapter is set; the caller resolves the
// chapter's first page through the page index.
func JumpToChapter(nc Context, chapter int) (PositionUpdate, error) {
	if chapter < 0 {
		return PositionUpdate{}, fmt.Errorf("nav: chapter %d out of range", chapter)
	}
	if nc.Chapters > 0 && chapter >= nc.Chapters {
		return PositionUpdate{}, fmt.Errorf("nav: chapter %d out of range (document has %d chapters)", chapter, nc.Chapters)
	}
	u := PositionUpdate{Chapter: ptr(chapter)}
	if nc.Mode == paginate.ModeAbsolute {
		if nc.View == layout.ViewSplit {
			u.LeftPage = ptr(0)
			u.RightPage = ptr(splitStride(nc))
		} else {
			u.SinglePage = ptr(0)
		}
	}
	return u, nil
}

// GoToStart positions at the first page of the first chapter.
func GoToStart(nc Context) PositionUpdate {
	u := PositionUpdate{Chapter: ptr(0)}
	switch {
	case nc.Mode == paginate.ModeDynamic:
		u.PageIndex = ptr(0)
	case nc.View == layout.ViewSplit:
		u.LeftPage = ptr(0)
		u.RightPage = ptr(splitStride(nc))
	default:
		u.SinglePage = ptr(0)
	}
	return u
}

// GoToEnd positions at the last page of the document. In absolute mode
// the landing offset depends on the final chapter's pagination, so the
// update carries AlignChapterEnd for the caller to resolve.
func GoToEnd(nc Context) PositionUpdate {
	if nc.Mode == paginate.ModeDynamic {
		if nc.TotalPages < 1 {
			return PositionUpdate{}
		}
		return PositionUpdate{PageIndex: ptr(nc.TotalPages - 1)}
	}
	if nc.Chapters < 1 {
		return PositionUpdate{}
	}
	return PositionUpdate{Chapter: ptr(nc.Chapters - 1), AlignChapterEnd: true}
}
