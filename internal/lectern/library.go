package lectern

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/library"
)

// LibraryService manages the book index.
type LibraryService struct {
	books   library.Store
	scanner *library.Scanner
	config  *config.Config
	log     zerolog.Logger
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(books library.Store, cfg *config.Config, log zerolog.Logger) *LibraryService {
	return &LibraryService{
		books:   books,
		scanner: library.NewScanner(books, log),
		config:  cfg,
		log:     log.With().Str("component", "library").Logger(),
	}
}

// List returns the library sorted for display: most recently opened
// first, never-opened books after in natural title order.
func (s *LibraryService) List(ctx context.Context) ([]library.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	library.SortByLastOpened(books)
	return books, nil
}

// Get returns one library entry by id.
func (s *LibraryService) Get(ctx context.Context, id string) (library.Book, error) {
	return s.books.Get(ctx, id)
}

// Resolve finds a library entry by id or, failing that, by file path.
// Commands accept either form.
func (s *LibraryService) Resolve(ctx context.Context, ref string) (library.Book, error) {
	b, err := s.books.Get(ctx, ref)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, library.ErrNotFound) {
		return library.Book{}, err
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return library.Book{}, library.ErrNotFound
	}
	return s.books.GetByPath(ctx, abs)
}

// Scan refreshes the index from the configured roots.
func (s *LibraryService) Scan(ctx context.Context) ([]library.RootResult, error) {
	if len(s.config.Library.Paths) == 0 {
		return nil, fmt.Errorf("no library paths configured")
	}

	s.log.Info().Strs("roots", s.config.Library.Paths).Msg("scanning library")
	return s.scanner.Scan(ctx, s.config.Library.Paths, s.config.Library.Include)
}

// ScanRoots scans an explicit set of roots instead of the configured
// ones. Used by the scan command's positional arguments.
func (s *LibraryService) ScanRoots(ctx context.Context, roots []string) ([]library.RootResult, error) {
	if len(roots) == 0 {
		return s.Scan(ctx)
	}
	return s.scanner.Scan(ctx, roots, s.config.Library.Include)
}

// Remove drops a book from the index. The file on disk and any saved
// reading position are untouched; rescanning the roots brings the book
// back.
func (s *LibraryService) Remove(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove book: %w", err)
	}
	return nil
}

// Watch emits debounced change notifications for the configured roots.
// The caller owns the returned watcher and must close it.
func (s *LibraryService) Watch() (*library.Watcher, error) {
	return library.NewWatcher(s.config.Library.Paths, s.log)
}
