// Package book defines the document model the reader operates on.
//
// A Document is an opened book: ordered chapters plus the resources
// (images, stylesheets) they reference. Format backends live in
// subpackages and only need to satisfy the Document interface; the
// rest of the application never touches container formats directly.
package book

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format identifies the container format of an opened document.
type Format string

const (
	FormatEPUB     Format = "epub"
	FormatMarkdown Format = "markdown"
)

var (
	// ErrChapterRange is returned when a chapter index is outside the spine.
	ErrChapterRange = errors.New("chapter index out of range")

	// ErrResourceNotFound is returned when a referenced resource does not
	// exist in the container.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrEncrypted is returned for books with DRM encryption, which the
	// reader does not attempt to open.
	ErrEncrypted = errors.New("book is encrypted")
)

// Metadata holds the descriptive fields shared by all formats. Absent
// fields are empty strings.
type Metadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string
	Publisher  string
}

// Chapter is one spine entry with its raw content. Content is XHTML
// for EPUB documents and markdown for markdown documents; Href is the
// chapter's path inside the container, used to resolve relative
// resource references.
type Chapter struct {
	Index   int
	Title   string
	Href    string
	Content []byte
}

// Document is an opened book. Implementations are not required to be
// safe for concurrent use; the reader accesses a document from a
// single goroutine.
type Document interface {
	// ID is the stable content hash of the source file. It changes when
	// the file changes and is the identity component of pagination
	// cache keys and stored reading positions.
	ID() string

	Path() string
	Format() Format
	Metadata() Metadata

	ChapterCount() int

	// Chapter returns the spine entry at index i. Indexes outside
	// [0, ChapterCount) return ErrChapterRange.
	Chapter(i int) (Chapter, error)

	// Resource returns the raw bytes of a container resource by its
	// container-absolute path.
	Resource(href string) ([]byte, error)

	Close() error
}

// HashFile returns the hex SHA-256 of the file contents. This is the
// document identity used everywhere a book must be recognized across
// sessions, renames, and moves.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
