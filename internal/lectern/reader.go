package lectern

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/content"
	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/nav"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/internal/core/position"
	"github.com/lecternapp/lectern/internal/library"
)

// OpenOptions configures how a document is opened for reading.
type OpenOptions struct {
	// Images enables the image-capable renderer. The caller decides from
	// config and terminal detection. Pagination and rendering must agree
	// on this flag, so it is fixed for the life of the Reading.
	Images bool

	// Peek opens the document for inspection only: the library index is
	// not updated and no open time is stamped.
	Peek bool
}

// ReaderService opens documents and produces live Reading sessions.
type ReaderService struct {
	books     library.Store
	positions position.Store
	cache     *paginate.Cache
	config    *config.Config
	log       zerolog.Logger
}

// NewReaderService creates a new ReaderService.
func NewReaderService(
	books library.Store,
	positions position.Store,
	cache *paginate.Cache,
	cfg *config.Config,
	log zerolog.Logger,
) *ReaderService {
	return &ReaderService{
		books:     books,
		positions: positions,
		cache:     cache,
		config:    cfg,
		log:       log.With().Str("component", "reader").Logger(),
	}
}

// Open loads the document at path and restores its reading state. The
// library index and the saved position are both best-effort: a book
// outside the library still opens, and an unreadable position starts
// the book from the beginning.
func (s *ReaderService) Open(ctx context.Context, path string, opts OpenOptions) (*Reading, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	doc, err := library.OpenDocument(abs)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	entry := s.indexOpened(ctx, doc, opts.Peek)
	pos := s.loadPosition(ctx, doc)

	srcLog := s.log.With().Str("book", shortID(doc.ID())).Logger()
	sources := paginate.Sources{
		Rich: content.NewSource(doc, content.Options{
			Images:  opts.Images,
			Justify: s.config.Reading.Justify,
			Logger:  srcLog,
		}),
		Fallback: content.NewWrapper(doc, srcLog),
		Log:      srcLog,
	}

	r := &Reading{
		doc:       doc,
		entry:     entry,
		positions: s.positions,
		sources:   sources,
		index:     paginate.NewIndex(sources),
		cache:     s.cache,
		cacheOn:   s.config.Cache.Enabled,
		images:    opts.Images,
		spacing:   s.config.Reading.LineSpacing,
		log:       srcLog,
		pos:       pos,
	}
	r.snapper = nav.Snapper{Source: sources.Rich, Log: srcLog}

	s.log.Info().
		Str("path", abs).
		Str("book", shortID(doc.ID())).
		Int("chapters", doc.ChapterCount()).
		Str("mode", string(pos.Mode)).
		Msg("opened document")
	return r, nil
}

// indexOpened upserts the document into the library and stamps the open
// time. Failures degrade to reading without a library entry. A peek
// open builds the entry without writing anything.
func (s *ReaderService) indexOpened(ctx context.Context, doc book.Document, peek bool) library.Book {
	var size int64
	if info, err := os.Stat(doc.Path()); err == nil {
		size = info.Size()
	}

	meta := doc.Metadata()
	entry := library.Book{
		ID:        uuid.NewString(),
		Path:      doc.Path(),
		Hash:      doc.ID(),
		Format:    doc.Format(),
		Title:     meta.Title,
		Author:    meta.Author,
		Language:  meta.Language,
		Chapters:  doc.ChapterCount(),
		SizeBytes: size,
		AddedAt:   time.Now(),
	}

	if peek {
		return entry
	}

	saved, err := s.books.Upsert(ctx, entry)
	if err != nil {
		s.log.Warn().Err(err).Str("path", doc.Path()).Msg("failed to index book; reading without a library entry")
		return entry
	}
	if err := s.books.TouchOpened(ctx, saved.ID, time.Now()); err != nil {
		s.log.Warn().Err(err).Str("id", saved.ID).Msg("failed to stamp open time")
	}
	return saved
}

// loadPosition returns the saved position for the document, or a fresh
// one seeded from the config defaults.
func (s *ReaderService) loadPosition(ctx context.Context, doc book.Document) position.Position {
	pos, err := s.positions.Get(ctx, doc.ID())
	if err != nil {
		if !errors.Is(err, position.ErrNotFound) {
			s.log.Warn().Err(err).Str("book", shortID(doc.ID())).Msg("failed to load position; starting from the beginning")
		}
		pos = position.New(doc.ID())
		pos.Mode = s.config.Reading.Mode
		pos.View = s.config.Reading.ViewMode
		return pos
	}

	pos = pos.Normalize()
	if last := doc.ChapterCount() - 1; pos.Chapter > last {
		pos.Chapter = max(last, 0)
	}
	return pos
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// lineAnchor is a stable reference to a place in the text: the line at
// the top of the screen. Page indexes and even page boundaries change
// whenever the layout does, but the line a reader was looking at is
// recoverable under any map.
type lineAnchor struct {
	chapter int
	line    int
}

// Reading is one live reading session over an opened document. It owns
// the reader's position, the adopted page map, and the layout the map
// was built for. A Reading is not safe for concurrent use; the TUI
// drives it from its update loop.
type Reading struct {
	doc       book.Document
	entry     library.Book
	positions position.Store
	sources   paginate.Sources
	index     *paginate.Index
	cache     *paginate.Cache
	cacheOn   bool
	images    bool
	spacing   layout.Spacing
	snapper   nav.Snapper
	log       zerolog.Logger

	pos position.Position

	// pageIndex is the flat page cursor used in dynamic mode. The
	// persisted position keeps the chapter-relative page instead, which
	// survives repagination; the two are synced after every move.
	pageIndex int

	width, height int
	metrics       layout.Metrics
	sig           layout.Signature

	// pending holds the anchor captured before a layout, view, or mode
	// change. The next adoption consumes it; until then the first
	// capture wins, because later state may already be mid-change.
	pending *lineAnchor
}

// Document returns the opened document.
func (r *Reading) Document() book.Document { return r.doc }

// Entry returns the book's library row. For books that could not be
// indexed it carries the probed metadata with an unsaved id.
func (r *Reading) Entry() library.Book { return r.entry }

// Position returns a copy of the current position.
func (r *Reading) Position() position.Position { return r.pos }

// Metrics returns the layout metrics of the current viewport.
func (r *Reading) Metrics() layout.Metrics { return r.metrics }

// Mode returns the active pagination mode.
func (r *Reading) Mode() paginate.Mode { return r.pos.Mode }

// View returns the active view mode.
func (r *Reading) View() layout.ViewMode { return r.pos.View }

// Spacing returns the configured line spacing. The renderer needs it
// to lay page lines onto screen rows the same way the paginator
// budgeted them.
func (r *Reading) Spacing() layout.Spacing { return r.spacing }

// Title returns the display title for headers and the library list.
func (r *Reading) Title() string { return r.entry.DisplayTitle() }

// ChapterCount returns the number of chapters in the document.
func (r *Reading) ChapterCount() int { return r.doc.ChapterCount() }

// ChapterTitle returns the title of chapter i, or a positional name
// when the document does not provide one.
func (r *Reading) ChapterTitle(i int) string {
	ch, err := r.doc.Chapter(i)
	if err != nil || ch.Title == "" {
		return fmt.Sprintf("Chapter %d", i+1)
	}
	return ch.Title
}

// ChapterTitles returns every chapter title in spine order, for the
// table of contents.
func (r *Reading) ChapterTitles() []string {
	titles := make([]string, r.doc.ChapterCount())
	for i := range titles {
		titles[i] = r.ChapterTitle(i)
	}
	return titles
}

// Close releases the underlying document.
func (r *Reading) Close() error {
	return r.doc.Close()
}

// SetLayout records a new viewport size. The page map is not rebuilt
// here; call EnsurePagination afterwards, typically from a command that
// shows build progress.
func (r *Reading) SetLayout(width, height int) {
	if width == r.width && height == r.height {
		return
	}
	r.captureAnchor()
	r.width, r.height = width, height
	r.relayout()
}

// SetView switches between single and split column layout.
func (r *Reading) SetView(v layout.ViewMode) {
	if !v.Valid() || v == r.pos.View {
		return
	}
	r.captureAnchor()
	r.pos.View = v
	r.relayout()
}

// SetMode switches the pagination strategy. The layout signature is
// unchanged; mode keys the cache separately, so both strategies' maps
// can coexist for one layout.
func (r *Reading) SetMode(m paginate.Mode) {
	if !m.Valid() || m == r.pos.Mode {
		return
	}
	r.captureAnchor()
	r.pos.Mode = m
}

func (r *Reading) relayout() {
	r.metrics = layout.Compute(r.width, r.height, r.pos.View, r.spacing)
	r.sig = layout.NewSignature(r.width, r.height, r.pos.View, r.spacing, r.images)
}

// NeedsBuild reports whether the adopted page map no longer matches the
// wanted layout and mode.
func (r *Reading) NeedsBuild() bool {
	return !r.index.Ready() || r.index.Mode() != r.pos.Mode || r.index.Signature() != r.sig
}

// EnsurePagination makes the adopted page map match the current layout
// and mode, loading from cache when possible and rebuilding otherwise.
// The position is re-anchored onto the new map so the text on screen
// stays put across relayouts.
func (r *Reading) EnsurePagination(ctx context.Context, progress paginate.Progress) error {
	if r.width < 1 || r.height < 1 {
		return fmt.Errorf("reader: layout not set")
	}
	if !r.NeedsBuild() {
		// The adopted map is the one any pending anchor was captured
		// against, so the anchor has nothing to correct.
		r.pending = nil
		return nil
	}

	chapters := r.doc.ChapterCount()
	var m *paginate.PageMap
	if r.cacheOn {
		if cached, ok := r.cache.Load(ctx, r.doc.ID(), r.pos.Mode, r.sig, chapters); ok {
			m = cached
		}
	}
	if m == nil {
		built, err := paginate.Builder{
			Sources:   r.sources,
			Metrics:   r.metrics,
			Signature: r.sig,
		}.Build(ctx, r.pos.Mode, chapters, progress)
		if err != nil {
			return err
		}
		m = built
		if r.cacheOn {
			r.cache.Save(ctx, r.doc.ID(), m)
		}
	}

	r.index.Adopt(m, r.metrics.ColumnWidth)

	if r.pending != nil {
		anchor := *r.pending
		r.pending = nil
		r.reanchor(anchor)
	} else {
		r.restore()
	}
	r.syncPosition()
	return nil
}

// captureAnchor records the current top-of-screen line so the next
// adoption can land on the same text.
func (r *Reading) captureAnchor() {
	if r.pending != nil || !r.index.Ready() {
		return
	}

	if r.index.Mode() == paginate.ModeAbsolute {
		r.pending = &lineAnchor{chapter: r.pos.Chapter, line: r.offset()}
		return
	}
	if p, ok := r.index.GetPage(r.pageIndex); ok {
		r.pending = &lineAnchor{chapter: p.Chapter, line: p.StartLine}
	}
}

// reanchor lands the position on the anchored line under the new map.
func (r *Reading) reanchor(a lineAnchor) {
	if r.pos.Mode == paginate.ModeDynamic {
		r.pageIndex = r.index.FindPageIndex(a.chapter, a.line)
		return
	}
	r.pos.Chapter = a.chapter
	r.setOffset(r.snap(a.chapter, min(a.line, r.index.MaxOffset(a.chapter))))
}

// restore lands on the persisted position the first time a map is
// adopted for this session.
func (r *Reading) restore() {
	ch := r.pos.Chapter
	if r.pos.Mode == paginate.ModeDynamic {
		first := r.index.FindPageIndex(ch, 0)
		count := r.index.PagesForChapter(ch)
		r.pageIndex = first + min(r.pos.PageIndex, max(count-1, 0))
		return
	}
	r.setOffset(r.snap(ch, min(r.offset(), r.index.MaxOffset(ch))))
}

// NextPage advances one screen.
func (r *Reading) NextPage() { r.apply(nav.NextPage(r.navContext())) }

// PrevPage goes back one screen.
func (r *Reading) PrevPage() { r.apply(nav.PrevPage(r.navContext())) }

// Scroll moves the absolute-mode offset by a line count. Dynamic mode
// has no line cursor and ignores it.
func (r *Reading) Scroll(dir nav.ScrollDirection, lines int) error {
	u, err := nav.Scroll(r.navContext(), dir, lines)
	if err != nil {
		return err
	}
	r.apply(u)
	return nil
}

// JumpToChapter opens the chapter's first page.
func (r *Reading) JumpToChapter(chapter int) error {
	u, err := nav.JumpToChapter(r.navContext(), chapter)
	if err != nil {
		return err
	}
	r.apply(u)
	return nil
}

// GoToStart jumps to the first page of the document.
func (r *Reading) GoToStart() { r.apply(nav.GoToStart(r.navContext())) }

// GoToEnd jumps to the last page of the document.
func (r *Reading) GoToEnd() { r.apply(nav.GoToEnd(r.navContext())) }

// GoToPage jumps to a 1-based global page number.
func (r *Reading) GoToPage(n int) error {
	total := r.index.TotalPages()
	if total < 1 {
		return fmt.Errorf("reader: no pages to jump to")
	}
	if n < 1 || n > total {
		return fmt.Errorf("reader: page %d out of range (1-%d)", n, total)
	}

	p, _ := r.index.GetPage(n - 1)
	r.pos.Chapter = p.Chapter
	if r.pos.Mode == paginate.ModeDynamic {
		r.pageIndex = n - 1
	} else {
		r.setOffset(r.snap(p.Chapter, p.StartLine))
	}
	r.syncPosition()
	return nil
}

// navContext snapshots the current position and layout for the nav
// package.
func (r *Reading) navContext() nav.Context {
	return nav.Context{
		Mode:               r.pos.Mode,
		View:               r.pos.View,
		Chapter:            r.pos.Chapter,
		Chapters:           r.doc.ChapterCount(),
		PageIndex:          r.pageIndex,
		TotalPages:         r.index.TotalPages(),
		SinglePage:         r.pos.SinglePage,
		LeftPage:           r.pos.LeftPage,
		RightPage:          r.pos.RightPage,
		MaxOffset:          r.index.MaxOffset(r.pos.Chapter),
		LinesPerPage:       r.metrics.LinesPerPage,
		ColumnLinesPerPage: r.metrics.LinesPerPage,
	}
}

// apply folds a navigation update into the position. This is the only
// place navigation changes reader state.
func (r *Reading) apply(u nav.PositionUpdate) {
	if u.Empty() {
		return
	}

	if u.Chapter != nil {
		r.pos.Chapter = *u.Chapter
	}

	// Chapter crossings and end alignment come back as intents because
	// the landing offset depends on the target chapter's pagination.
	switch u.AdvanceChapter {
	case nav.AdvanceNext:
		r.pos.Chapter++
		r.setOffset(0)
	case nav.AdvancePrev:
		r.pos.Chapter--
		r.alignChapterEnd()
	case nav.AdvanceNone:
	}
	if u.AlignChapterEnd {
		r.alignChapterEnd()
	}

	if u.PageIndex != nil {
		r.pageIndex = *u.PageIndex
	} else if r.pos.Mode == paginate.ModeDynamic && u.Chapter != nil {
		// Chapter jump: the first page of the chapter.
		r.pageIndex = r.index.FindPageIndex(r.pos.Chapter, 0)
	}

	if u.SinglePage != nil {
		r.pos.SinglePage = r.snap(r.pos.Chapter, *u.SinglePage)
	}
	if u.LeftPage != nil {
		// The right column rides one stride past the left; recompute it
		// from the snapped left instead of taking the update's value.
		left := r.snap(r.pos.Chapter, *u.LeftPage)
		r.pos.LeftPage = left
		r.pos.RightPage = left + r.stride()
	}

	r.syncPosition()
}

// alignChapterEnd lands on the final page of the current chapter.
// Absolute mode only; dynamic end-of-document jumps carry an explicit
// page index instead.
func (r *Reading) alignChapterEnd() {
	r.setOffset(r.snap(r.pos.Chapter, r.index.MaxOffset(r.pos.Chapter)))
}

// syncPosition refreshes the derived position fields after a move.
func (r *Reading) syncPosition() {
	if r.pos.Mode == paginate.ModeDynamic {
		if p, ok := r.index.GetPage(r.pageIndex); ok {
			r.pageIndex = p.GlobalIndex
			r.pos.Chapter = p.Chapter
			r.pos.PageIndex = p.PageInChapter
		}
	}
	r.pos.Percent = r.Percent()
}

func (r *Reading) offset() int {
	if r.pos.View == layout.ViewSplit {
		return r.pos.LeftPage
	}
	return r.pos.SinglePage
}

func (r *Reading) setOffset(off int) {
	if r.pos.View == layout.ViewSplit {
		r.pos.LeftPage = off
		r.pos.RightPage = off + r.stride()
		return
	}
	r.pos.SinglePage = off
}

func (r *Reading) stride() int {
	return max(r.metrics.LinesPerPage, 1)
}

// snap nudges an absolute offset off the interior of an image block.
// Plain rendering has no spacer rows, so there is nothing to snap.
func (r *Reading) snap(chapter, off int) int {
	if !r.images || r.pos.Mode != paginate.ModeAbsolute {
		return off
	}
	return r.snapper.Snap(chapter, r.metrics.ColumnWidth, off)
}

// globalIndex is the current 0-based global page, in either mode.
func (r *Reading) globalIndex() int {
	if r.pos.Mode == paginate.ModeDynamic {
		return r.pageIndex
	}
	return r.index.FindPageIndex(r.pos.Chapter, r.offset())
}

// Percent returns whole-book progress in the range 0-100.
func (r *Reading) Percent() float64 {
	total := r.index.TotalPages()
	if total < 1 {
		return 0
	}
	return float64(r.globalIndex()+1) / float64(total) * 100
}

// Spread is what the reader currently sees: one page, or two side by
// side in split view. Right is nil in single view and always present in
// split view, where a column past the end of the content is an empty
// page.
type Spread struct {
	Left  paginate.Page
	Right *paginate.Page

	// PageNumber is the 1-based global number of the left page.
	PageNumber int
	TotalPages int
	Chapter    int
	Percent    float64
}

// Current returns the spread at the present position. ok is false until
// a page map has been adopted.
func (r *Reading) Current() (Spread, bool) {
	if !r.index.Ready() {
		return Spread{}, false
	}
	if r.pos.Mode == paginate.ModeDynamic {
		return r.dynamicSpread()
	}
	return r.absoluteSpread(), true
}

func (r *Reading) dynamicSpread() (Spread, bool) {
	left, ok := r.index.GetPage(r.pageIndex)
	if !ok {
		return Spread{}, false
	}

	s := Spread{
		Left:       left,
		PageNumber: left.GlobalIndex + 1,
		TotalPages: r.index.TotalPages(),
		Chapter:    left.Chapter,
		Percent:    r.Percent(),
	}
	if r.pos.View == layout.ViewSplit {
		right := paginate.Page{Chapter: left.Chapter}
		if p, ok := r.index.GetPage(left.GlobalIndex + 1); ok && p.GlobalIndex > left.GlobalIndex {
			right = p
		}
		s.Right = &right
	}
	return s, true
}

func (r *Reading) absoluteSpread() Spread {
	ch := r.pos.Chapter
	s := Spread{
		Left:       r.windowPage(ch, r.offset()),
		PageNumber: r.globalIndex() + 1,
		TotalPages: r.index.TotalPages(),
		Chapter:    ch,
		Percent:    r.Percent(),
	}
	if r.pos.View == layout.ViewSplit {
		right := r.windowPage(ch, r.pos.RightPage)
		s.Right = &right
	}
	return s
}

// windowPage cuts a page directly from the line stream. Absolute
// offsets are free line positions after scrolling, so the visible page
// is served from the sources rather than looked up in the map.
func (r *Reading) windowPage(chapter, offset int) paginate.Page {
	lines := r.sources.Window(chapter, r.metrics.ColumnWidth, offset, r.metrics.LinesPerPage)
	end := offset
	if len(lines) > 0 {
		end = offset + len(lines) - 1
	}
	return paginate.Page{
		Chapter:   chapter,
		StartLine: offset,
		EndLine:   end,
		Lines:     lines,
	}
}

// SavePosition persists the current position.
func (r *Reading) SavePosition(ctx context.Context) error {
	r.pos.UpdatedAt = time.Now()
	if err := r.positions.Save(ctx, r.pos); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}
