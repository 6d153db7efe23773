// Package nav computes reading-position moves. Every operation takes an
// immutable Context snapshot of the current position and layout and
// returns a PositionUpdate naming only the fields that change; the caller
// applies the update to application state. Nothing here touches state or
// does I/O, which keeps every move a pure, testable function.
package nav

import (
	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// Context is a snapshot of reading position and layout taken immediately
// before a navigation intent. It is never mutated.
type Context struct {
	Mode paginate.Mode
	View layout.ViewMode

	Chapter  int
	Chapters int // total chapters; 0 when unknown

	// Flat page cursor, dynamic mode only.
	PageIndex  int
	TotalPages int

	// Absolute-mode line offsets.
	SinglePage int
	LeftPage   int
	RightPage  int

	// MaxOffset is the highest valid top-of-page offset in the current
	// chapter (the start line of its final page).
	MaxOffset int

	LinesPerPage       int
	ColumnLinesPerPage int
}

// ChapterAdvance asks the caller to cross a chapter boundary; the landing
// offset inside the new chapter is the caller's decision because it needs
// the new chapter's max offset.
type ChapterAdvance string

const (
	AdvanceNone ChapterAdvance = ""
	AdvanceNext ChapterAdvance = "next"
	AdvancePrev ChapterAdvance = "prev"
)

// ScrollDirection selects which way Scroll moves.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// PositionUpdate is the set of position fields an intent wants changed.
// Nil fields are left untouched by the caller's reducer.
type PositionUpdate struct {
	Chapter    *int
	PageIndex  *int
	SinglePage *int
	LeftPage   *int
	RightPage  *int

	AdvanceChapter ChapterAdvance

	// AlignChapterEnd accompanies a Chapter change and asks the caller to
	// land on that chapter's final page instead of its first.
	AlignChapterEnd bool
}

// Empty reports whether the update changes nothing.
func (u PositionUpdate) Empty() bool {
	return u.Chapter == nil &&
		u.PageIndex == nil &&
		u.SinglePage == nil &&
		u.LeftPage == nil &&
		u.RightPage == nil &&
		u.AdvanceChapter == AdvanceNone &&
		!u.AlignChapterEnd
}

func ptr(n int) *int { return &n }

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
