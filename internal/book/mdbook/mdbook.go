// Package mdbook opens plain markdown files as book documents.
//
// A single file becomes one book. Top-level headings split it into
// chapters; a file without headings is a single-chapter book. This
// keeps plain-text and markdown reading on the same pagination path
// as EPUB without inventing a container format.
package mdbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lecternapp/lectern/internal/book"
)

// Document is an opened markdown file.
type Document struct {
	path     string
	id       string
	meta     book.Metadata
	chapters []chapter
}

type chapter struct {
	title   string
	content string
}

// Open reads and splits the markdown file at path.
func Open(path string) (*Document, error) {
	id, err := book.HashFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	d := &Document{
		path:     path,
		id:       id,
		chapters: splitChapters(string(data)),
	}

	d.meta = book.Metadata{Title: deriveTitle(path, d.chapters)}
	return d, nil
}

// splitChapters breaks the file at level-one headings. Heading markers
// inside fenced code blocks are ignored. Content before the first
// heading becomes its own chapter when non-blank.
func splitChapters(text string) []chapter {
	lines := strings.Split(text, "\n")

	var (
		chapters []chapter
		current  []string
		title    string
		inFence  bool
	)

	flush := func() {
		body := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if title == "" && strings.TrimSpace(body) == "" {
			current = nil
			return
		}
		chapters = append(chapters, chapter{title: title, content: body})
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence && strings.HasPrefix(line, "# ") {
			flush()
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		current = append(current, line)
	}
	flush()

	if len(chapters) == 0 {
		chapters = []chapter{{content: strings.TrimRight(text, "\n")}}
	}
	return chapters
}

// deriveTitle prefers the first chapter heading, falling back to the
// file name without its extension.
func deriveTitle(path string, chapters []chapter) string {
	for _, ch := range chapters {
		if ch.title != "" {
			return ch.title
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *Document) ID() string              { return d.id }
func (d *Document) Path() string            { return d.path }
func (d *Document) Format() book.Format     { return book.FormatMarkdown }
func (d *Document) Metadata() book.Metadata { return d.meta }
func (d *Document) ChapterCount() int       { return len(d.chapters) }

func (d *Document) Chapter(i int) (book.Chapter, error) {
	if i < 0 || i >= len(d.chapters) {
		return book.Chapter{}, fmt.Errorf("chapter %d of %d: %w", i, len(d.chapters), book.ErrChapterRange)
	}
	ch := d.chapters[i]
	return book.Chapter{
		Index:   i,
		Title:   ch.title,
		Href:    d.path,
		Content: []byte(ch.content),
	}, nil
}

// Resource always fails: markdown books have no container to pull
// referenced files from.
func (d *Document) Resource(href string) ([]byte, error) {
	return nil, fmt.Errorf("%s: %w", href, book.ErrResourceNotFound)
}

func (d *Document) Close() error { return nil }
