package paginate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
)

// Sources bundles the rich line source with the plain-wrap fallback used
// when rich layout fails. Failures never propagate past this type: a
// chapter that cannot be read from either source yields no lines.
type Sources struct {
	Rich     content.LineSource
	Fallback content.LineSource
	Log      zerolog.Logger
}

func (s Sources) lines(chapter, width int) []content.Line {
	if s.Rich != nil {
		lines, err := s.Rich.Lines(chapter, width)
		if err == nil {
			return lines
		}
		s.Log.Warn().Err(err).Int("chapter", chapter).Msg("line source failed, using plain fallback")
	}
	if s.Fallback == nil {
		return nil
	}
	lines, err := s.Fallback.Lines(chapter, width)
	if err != nil {
		return nil
	}
	return lines
}

// Window returns length lines of a chapter starting at offset, clamped
// to the chapter, with the same fallback behavior as a full read. The
// absolute-mode reader serves arbitrary scrolled offsets through this.
func (s Sources) Window(chapter, width, offset, length int) []content.Line {
	if s.Rich != nil {
		lines, err := s.Rich.Window(chapter, width, offset, length)
		if err == nil {
			return lines
		}
		s.Log.Warn().Err(err).Int("chapter", chapter).Msg("line source failed, using plain fallback")
	}
	if s.Fallback == nil {
		return nil
	}
	lines, err := s.Fallback.Window(chapter, width, offset, length)
	if err != nil {
		return nil
	}
	return lines
}

// Progress reports chapters completed during a build.
type Progress func(done, total int)

// Builder constructs page maps from wrapped chapter lines.
type Builder struct {
	Sources   Sources
	Metrics   layout.Metrics
	Signature layout.Signature
}

// Build paginates every chapter of the document under the configured
// layout. Chapters that cannot be read paginate as empty rather than
// failing the build. The context is checked between chapters so a rebuild
// can be abandoned when the layout changes again mid-build.
func (b Builder) Build(ctx context.Context, mode Mode, chapters int, progress Progress) (*PageMap, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("paginate: unknown mode %q", mode)
	}
	pages := make([]Page, 0, chapters)
	for c := 0; c < chapters; c++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("paginate: build canceled: %w", err)
		}
		lines := b.Sources.lines(c, b.Metrics.ColumnWidth)
		var ranges []lineRange
		if mode == ModeAbsolute {
			ranges = absoluteRanges(len(lines), b.Metrics.LinesPerPage)
		} else {
			ranges = dynamicRanges(lines, b.Metrics.LinesPerPage)
		}
		for i, r := range ranges {
			pages = append(pages, Page{
				Chapter:        c,
				PageInChapter:  i,
				PagesInChapter: len(ranges),
				StartLine:      r.start,
				EndLine:        r.end,
			})
		}
		if progress != nil {
			progress(c+1, chapters)
		}
	}
	return newPageMap(mode, b.Signature, pages), nil
}
