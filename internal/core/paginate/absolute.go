package paginate

// lineRange is an inclusive span of wrapped-line indexes within a chapter.
type lineRange struct {
	start, end int
}

// absoluteRanges slices a chapter of lineCount wrapped lines into pages of
// exactly linesPerPage lines each. The final page absorbs the remainder,
// and an empty chapter still yields one empty page so every chapter stays
// addressable.
func absoluteRanges(lineCount, linesPerPage int) []lineRange {
	if linesPerPage < 1 {
		linesPerPage = 1
	}
	n := (lineCount + linesPerPage - 1) / linesPerPage
	if n < 1 {
		n = 1
	}
	ranges := make([]lineRange, n)
	for i := range ranges {
		start := i * linesPerPage
		end := start + linesPerPage - 1
		if end > lineCount-1 {
			end = lineCount - 1
		}
		if end < start {
			end = start
		}
		ranges[i] = lineRange{start: start, end: end}
	}
	return ranges
}
