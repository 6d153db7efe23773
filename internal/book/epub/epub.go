// Package epub opens EPUB 2 and EPUB 3 containers as book documents.
//
// Only the pieces a terminal reader needs are parsed: package metadata,
// the spine, manifest hrefs, and NCX chapter titles. Rendering concerns
// (CSS, fonts, fixed layouts) are ignored.
package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/lecternapp/lectern/internal/book"
)

var (
	// ErrInvalidArchive is returned when the file is not a readable ZIP
	// container.
	ErrInvalidArchive = errors.New("epub: invalid or corrupted archive")

	// ErrNoContainer is returned when META-INF/container.xml is missing
	// or does not point at a package document.
	ErrNoContainer = errors.New("epub: missing or invalid META-INF/container.xml")

	// ErrInvalidOPF is returned when the package document cannot be parsed.
	ErrInvalidOPF = errors.New("epub: invalid package document")

	// ErrEmptySpine is returned when the package document lists no
	// readable content.
	ErrEmptySpine = errors.New("epub: no content in spine")
)

// Document is an opened EPUB container.
type Document struct {
	path string
	id   string

	zr    *zip.ReadCloser
	files map[string]*zip.File

	meta  book.Metadata
	spine []spineEntry
}

type spineEntry struct {
	title string
	href  string // container-absolute; empty when the manifest item is missing
}

// Open opens the EPUB at path. DRM-protected books are rejected with
// book.ErrEncrypted. Spine entries whose content files are missing are
// kept so chapter indexes stay aligned with the book's own ordering;
// reading such a chapter returns book.ErrResourceNotFound.
func Open(filePath string) (*Document, error) {
	id, err := book.HashFile(filePath)
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, ErrInvalidArchive
	}

	d := &Document{
		path:  filePath,
		id:    id,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		d.files[f.Name] = f
	}

	if err := d.init(); err != nil {
		_ = zr.Close()
		return nil, err
	}
	return d, nil
}

func (d *Document) init() error {
	if err := checkEncryption(d); err != nil {
		return err
	}

	opfPath, err := parseContainer(d)
	if err != nil {
		return err
	}

	pkg, err := parseOPF(d, opfPath)
	if err != nil {
		return err
	}

	d.meta = pkg.meta
	d.spine = buildSpine(pkg)
	if len(d.spine) == 0 {
		return ErrEmptySpine
	}

	// Chapter titles come from the NCX when one is present. Missing or
	// unparsable NCX just leaves titles empty.
	if tocPath := pkg.tocHref; tocPath != "" {
		applyNCXTitles(d, tocPath)
	}

	return nil
}

// buildSpine resolves spine itemrefs against the manifest. Entries
// without a manifest item keep their slot with an empty href.
func buildSpine(pkg *opfPackage) []spineEntry {
	spine := make([]spineEntry, 0, len(pkg.spine))
	for _, idref := range pkg.spine {
		item, ok := pkg.manifest[idref]
		if !ok {
			spine = append(spine, spineEntry{})
			continue
		}
		spine = append(spine, spineEntry{href: resolveHref(pkg.baseDir, item.href)})
	}
	return spine
}

// resolveHref joins a manifest href onto the OPF base directory,
// URL-decoding percent escapes first.
func resolveHref(baseDir, href string) string {
	if decoded, err := url.QueryUnescape(href); err == nil {
		href = decoded
	}
	if baseDir == "" {
		return href
	}
	return path.Join(baseDir, href)
}

func (d *Document) ID() string              { return d.id }
func (d *Document) Path() string            { return d.path }
func (d *Document) Format() book.Format     { return book.FormatEPUB }
func (d *Document) Metadata() book.Metadata { return d.meta }
func (d *Document) ChapterCount() int       { return len(d.spine) }

// Chapter reads the spine entry at index i from the container.
func (d *Document) Chapter(i int) (book.Chapter, error) {
	if i < 0 || i >= len(d.spine) {
		return book.Chapter{}, fmt.Errorf("chapter %d of %d: %w", i, len(d.spine), book.ErrChapterRange)
	}

	entry := d.spine[i]
	ch := book.Chapter{Index: i, Title: entry.title, Href: entry.href}
	if entry.href == "" {
		return ch, fmt.Errorf("spine item %d has no content file: %w", i, book.ErrResourceNotFound)
	}

	data, err := d.readFile(entry.href)
	if err != nil {
		return ch, err
	}
	ch.Content = data
	return ch, nil
}

// Resource returns the raw bytes of a container file by its
// container-absolute path.
func (d *Document) Resource(href string) ([]byte, error) {
	return d.readFile(href)
}

func (d *Document) readFile(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, book.ErrResourceNotFound)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

func (d *Document) Close() error {
	return d.zr.Close()
}
