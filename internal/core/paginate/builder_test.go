package paginate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// stubSource serves fixed lines per chapter, or a fixed error.
type stubSource struct {
	chapters map[int][]content.Line
	err      error
}

func (s *stubSource) Lines(chapter, _ int) ([]content.Line, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chapters[chapter], nil
}

func (s *stubSource) Window(chapter, width, offset, length int) ([]content.Line, error) {
	lines, err := s.Lines(chapter, width)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	if length < 0 {
		length = 0
	}
	end := offset + length
	if end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end], nil
}

func chapterLines(n int) []content.Line {
	out := make([]content.Line, n)
	for i := range out {
		out[i] = content.Line{Text: fmt.Sprintf("line %d", i), Kind: content.KindText}
	}
	return out
}

func testSources(rich, fallback content.LineSource) paginate.Sources {
	return paginate.Sources{Rich: rich, Fallback: fallback, Log: zerolog.Nop()}
}

func testBuilder(rich, fallback content.LineSource, lpp int) paginate.Builder {
	return paginate.Builder{
		Sources:   testSources(rich, fallback),
		Metrics:   layout.Metrics{ColumnWidth: 40, LinesPerPage: lpp},
		Signature: layout.NewSignature(80, 24, layout.ViewSingle, layout.SpacingNormal, false),
	}
}

func TestBuilder_Build(t *testing.T) {
	src := &stubSource{chapters: map[int][]content.Line{
		0: chapterLines(23),
		1: nil,
		2: chapterLines(10),
	}}
	b := testBuilder(src, nil, 10)

	m, err := b.Build(context.Background(), paginate.ModeAbsolute, 3, nil)
	require.NoError(t, err)

	require.Equal(t, 5, m.Len())
	assert.Equal(t, 3, m.Chapters())

	// Chapter 0: 23 lines over 3 pages.
	assert.Equal(t, paginate.Page{Chapter: 0, PageInChapter: 0, PagesInChapter: 3, StartLine: 0, EndLine: 9, GlobalIndex: 0}, m.Pages[0])
	assert.Equal(t, paginate.Page{Chapter: 0, PageInChapter: 2, PagesInChapter: 3, StartLine: 20, EndLine: 22, GlobalIndex: 2}, m.Pages[2])
	// Chapter 1 is empty but still addressable.
	assert.Equal(t, paginate.Page{Chapter: 1, PageInChapter: 0, PagesInChapter: 1, StartLine: 0, EndLine: 0, GlobalIndex: 3}, m.Pages[3])
	// Chapter 2 fits on one page.
	assert.Equal(t, paginate.Page{Chapter: 2, PageInChapter: 0, PagesInChapter: 1, StartLine: 0, EndLine: 9, GlobalIndex: 4}, m.Pages[4])

	first, count, ok := m.ChapterSpan(2)
	require.True(t, ok)
	assert.Equal(t, 4, first)
	assert.Equal(t, 1, count)
}

func TestBuilder_FallbackOnRichFailure(t *testing.T) {
	rich := &stubSource{err: errors.New("render exploded")}
	fallback := &stubSource{chapters: map[int][]content.Line{0: chapterLines(5)}}
	b := testBuilder(rich, fallback, 10)

	m, err := b.Build(context.Background(), paginate.ModeAbsolute, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, 0, m.Pages[0].StartLine)
	assert.Equal(t, 4, m.Pages[0].EndLine)
}

func TestBuilder_UnreadableChapterPaginatesEmpty(t *testing.T) {
	rich := &stubSource{err: errors.New("bad chapter")}
	fallback := &stubSource{err: errors.New("also bad")}
	b := testBuilder(rich, fallback, 10)

	m, err := b.Build(context.Background(), paginate.ModeDynamic, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, paginate.Page{Chapter: 0, PageInChapter: 0, PagesInChapter: 1, StartLine: 0, EndLine: 0}, m.Pages[0])
}

func TestBuilder_InvalidMode(t *testing.T) {
	b := testBuilder(&stubSource{}, nil, 10)
	_, err := b.Build(context.Background(), paginate.Mode("spiral"), 1, nil)
	assert.Error(t, err)
}

func TestBuilder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := testBuilder(&stubSource{chapters: map[int][]content.Line{0: chapterLines(3)}}, nil, 10)
	_, err := b.Build(ctx, paginate.ModeAbsolute, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_Progress(t *testing.T) {
	src := &stubSource{chapters: map[int][]content.Line{
		0: chapterLines(1),
		1: chapterLines(1),
		2: chapterLines(1),
	}}
	b := testBuilder(src, nil, 10)

	var reports [][2]int
	_, err := b.Build(context.Background(), paginate.ModeAbsolute, 3, func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, reports)
}

func TestBuilder_ZeroChapters(t *testing.T) {
	b := testBuilder(&stubSource{}, nil, 10)
	m, err := b.Build(context.Background(), paginate.ModeAbsolute, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Chapters())
}
