package paginate

import "github.com/lecternapp/lectern/internal/core/content"

// dynamicRanges packs a chapter's wrapped lines into pages of at most
// linesPerPage lines while keeping image blocks whole. A block that does
// not fit in the space left on the current page is deferred to the next
// one. A block taller than a full page gets a page to itself spanning the
// entire block; the renderer clips the rows that overflow.
func dynamicRanges(lines []content.Line, linesPerPage int) []lineRange {
	if linesPerPage < 1 {
		linesPerPage = 1
	}
	if len(lines) == 0 {
		return []lineRange{{start: 0, end: 0}}
	}

	var ranges []lineRange
	start, used := 0, 0
	for i := 0; i < len(lines); {
		h := blockHeight(lines, i)
		if h > linesPerPage {
			if used > 0 {
				ranges = append(ranges, lineRange{start: start, end: i - 1})
			}
			ranges = append(ranges, lineRange{start: i, end: i + h - 1})
			i += h
			start, used = i, 0
			continue
		}
		if used > 0 && used+h > linesPerPage {
			ranges = append(ranges, lineRange{start: start, end: i - 1})
			start, used = i, 0
		}
		used += h
		i += h
		if used >= linesPerPage {
			ranges = append(ranges, lineRange{start: start, end: i - 1})
			start, used = i, 0
		}
	}
	if used > 0 {
		ranges = append(ranges, lineRange{start: start, end: len(lines) - 1})
	}
	return ranges
}

// blockHeight returns the number of lines occupied by the block starting
// at index i: the length of the run sharing one image reference, or 1 for
// any non-image line.
func blockHeight(lines []content.Line, i int) int {
	ref := lines[i].Image
	if ref == nil {
		return 1
	}
	h := 1
	for i+h < len(lines) && lines[i+h].Image == ref {
		h++
	}
	return h
}
