// Package library maintains the index of known books: what is on disk,
// what has been opened, and the metadata shown in the picker.
package library

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/book/epub"
	"github.com/lecternapp/lectern/internal/book/mdbook"
)

// Book is one library entry. ID is a generated row identity; Hash is
// the document content hash that keys positions and pagination caches,
// so it follows the file when it is copied or moved.
type Book struct {
	ID           string      `json:"id"`
	Path         string      `json:"path"`
	Hash         string      `json:"hash"`
	Format       book.Format `json:"format"`
	Title        string      `json:"title"`
	Author       string      `json:"author"`
	Language     string      `json:"language,omitempty"`
	Chapters     int         `json:"chapters"`
	SizeBytes    int64       `json:"size_bytes"`
	AddedAt      time.Time   `json:"added_at"`
	LastOpenedAt *time.Time  `json:"last_opened_at,omitempty"`
}

// DisplayTitle returns the title, falling back to the file name for
// books whose metadata carries none.
func (b Book) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	base := filepath.Base(b.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SortByTitle orders books naturally by display title, so "Chapter 2"
// sorts before "Chapter 10".
func SortByTitle(books []Book) {
	sort.SliceStable(books, func(i, j int) bool {
		return natural.Less(
			strings.ToLower(books[i].DisplayTitle()),
			strings.ToLower(books[j].DisplayTitle()),
		)
	})
}

// SortByLastOpened orders books most recently opened first; never
// opened books follow, naturally by title.
func SortByLastOpened(books []Book) {
	SortByTitle(books)
	sort.SliceStable(books, func(i, j int) bool {
		li, lj := books[i].LastOpenedAt, books[j].LastOpenedAt
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.After(*lj)
		}
	})
}

// FormatForPath detects the document format from the file extension.
func FormatForPath(path string) (book.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return book.FormatEPUB, true
	case ".md", ".markdown", ".txt":
		return book.FormatMarkdown, true
	}
	return "", false
}

// OpenDocument opens the file at path with the backend for its format.
func OpenDocument(path string) (book.Document, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}

	switch format {
	case book.FormatEPUB:
		return epub.Open(path)
	default:
		return mdbook.Open(path)
	}
}
