// Package layout computes rendering metrics for the reader viewport.
//
// All pagination decisions derive from the two numbers produced here:
// the column width text is wrapped to, and the number of wrapped lines
// that fit on one page. Equal layout parameters must always produce
// equal metrics, so page maps built under a signature stay valid for
// as long as the signature matches.
package layout

import (
	"fmt"
	"math"
)

// ViewMode selects between a single centered column and two
// side-by-side columns.
type ViewMode string

const (
	ViewSingle ViewMode = "single"
	ViewSplit  ViewMode = "split"
)

// Valid reports whether the mode is one of the known view modes.
func (v ViewMode) Valid() bool {
	return v == ViewSingle || v == ViewSplit
}

// Spacing controls how densely wrapped lines are packed onto a page.
type Spacing string

const (
	SpacingCompact Spacing = "compact"
	SpacingNormal  Spacing = "normal"
	SpacingRelaxed Spacing = "relaxed"
)

// Valid reports whether the spacing is one of the known values.
func (s Spacing) Valid() bool {
	switch s {
	case SpacingCompact, SpacingNormal, SpacingRelaxed:
		return true
	}
	return false
}

const (
	// GutterWidth is the fixed gap between the two columns in split view.
	GutterWidth = 4

	// ReservedRows is the vertical chrome budget: header bar, status
	// bar, and their padding rows. Content gets whatever remains.
	ReservedRows = 4

	minSingleWidth = 30
	maxSingleWidth = 120
	minSplitWidth  = 20

	// singleWidthRatio keeps a margin on wide terminals so lines stay
	// readable instead of spanning the full viewport.
	singleWidthRatio = 0.9

	normalSpacingRatio = 0.8
)

// Metrics are the derived layout numbers every pagination pass uses.
type Metrics struct {
	// ColumnWidth is the wrap width for one column of text.
	ColumnWidth int
	// LinesPerPage is the number of wrapped lines on one page of one column.
	LinesPerPage int
}

// Compute derives metrics from the viewport size and reader settings.
// Degenerate viewports (zero, negative, or tiny) clamp to the minimums
// rather than failing; callers never need to special-case them.
func Compute(width, height int, view ViewMode, spacing Spacing) Metrics {
	return Metrics{
		ColumnWidth:  columnWidth(width, view),
		LinesPerPage: linesPerPage(contentHeight(height), spacing),
	}
}

func columnWidth(width int, view ViewMode) int {
	if view == ViewSplit {
		return max((width-GutterWidth)/2, minSplitWidth)
	}

	w := int(math.Round(float64(width) * singleWidthRatio))
	return min(max(w, minSingleWidth), maxSingleWidth)
}

func contentHeight(height int) int {
	return max(height-ReservedRows, 1)
}

func linesPerPage(contentHeight int, spacing Spacing) int {
	switch spacing {
	case SpacingRelaxed:
		return max(contentHeight/2, 1)
	case SpacingNormal:
		return max(int(math.Round(float64(contentHeight)*normalSpacingRatio)), 1)
	default:
		return max(contentHeight, 1)
	}
}

// Signature identifies one exact layout configuration. Two signatures
// compare equal when, and only when, rebuilding pagination would yield
// an identical page map, which makes the signature usable as a cache
// key component.
type Signature string

// NewSignature builds a signature from every input pagination depends
// on. Inline image rendering is included because enabling it changes
// the wrapped line stream (image cells and caption suppression), not
// just presentation.
func NewSignature(width, height int, view ViewMode, spacing Spacing, images bool) Signature {
	img := 0
	if images {
		img = 1
	}
	return Signature(fmt.Sprintf("%dx%d:%s:%s:i%d", width, height, view, spacing, img))
}
