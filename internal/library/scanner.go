package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPatterns are the glob patterns scanned under each library root
// when the config does not override them.
var DefaultPatterns = []string{"**/*.epub", "**/*.md"}

// RootResult summarizes one scanned root.
type RootResult struct {
	Root    string `json:"root"`
	Found   int    `json:"found"`
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

// Scanner walks library roots and keeps the book index in sync with
// the files on disk.
type Scanner struct {
	store Store
	log   zerolog.Logger
}

// NewScanner creates a scanner writing to the given store.
func NewScanner(store Store, log zerolog.Logger) *Scanner {
	return &Scanner{
		store: store,
		log:   log.With().Str("component", "scanner").Logger(),
	}
}

// Scan walks each root for files matching the patterns and upserts an
// entry per book. Files that fail to open are logged and counted, not
// fatal; a root that cannot be globbed fails the scan.
func (s *Scanner) Scan(ctx context.Context, roots, patterns []string) ([]RootResult, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	results := make([]RootResult, 0, len(roots))
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("scan canceled: %w", err)
		}

		res, err := s.scanRoot(ctx, root, patterns)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string, patterns []string) (RootResult, error) {
	res := RootResult{Root: root}

	root, err := filepath.Abs(root)
	if err != nil {
		return res, fmt.Errorf("resolving root %s: %w", root, err)
	}

	seen := make(map[string]struct{})
	fsys := os.DirFS(root)

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return res, fmt.Errorf("glob %q under %s: %w", pattern, root, err)
		}

		for _, rel := range matches {
			path := filepath.Join(root, filepath.FromSlash(rel))
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}

			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("scan canceled: %w", err)
			}

			res.Found++
			switch added, err := s.indexFile(ctx, path); {
			case err != nil:
				res.Failed++
				s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable book")
			case added == indexAdded:
				res.Added++
			case added == indexUpdated:
				res.Updated++
			}
		}
	}

	return res, nil
}

type indexOutcome int

const (
	indexUnchanged indexOutcome = iota
	indexAdded
	indexUpdated
)

// indexFile upserts one file into the store. Unchanged files (same path
// and size as the stored entry) are skipped without reopening them.
func (s *Scanner) indexFile(ctx context.Context, path string) (indexOutcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return indexUnchanged, fmt.Errorf("stat: %w", err)
	}

	existing, err := s.store.GetByPath(ctx, path)
	known := err == nil
	if known && existing.SizeBytes == info.Size() && existing.Hash != "" {
		return indexUnchanged, nil
	}

	entry, err := Probe(path)
	if err != nil {
		return indexUnchanged, err
	}
	entry.ID = uuid.NewString()
	entry.SizeBytes = info.Size()
	entry.AddedAt = time.Now()

	if _, err := s.store.Upsert(ctx, entry); err != nil {
		return indexUnchanged, fmt.Errorf("upsert: %w", err)
	}

	if known {
		return indexUpdated, nil
	}
	return indexAdded, nil
}

// Probe opens the file just long enough to read identity and metadata.
func Probe(path string) (Book, error) {
	doc, err := OpenDocument(path)
	if err != nil {
		return Book{}, err
	}
	defer func() { _ = doc.Close() }()

	meta := doc.Metadata()
	return Book{
		Path:     doc.Path(),
		Hash:     doc.ID(),
		Format:   doc.Format(),
		Title:    meta.Title,
		Author:   meta.Author,
		Language: meta.Language,
		Chapters: doc.ChapterCount(),
	}, nil
}
