package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for scanner tests.
type memStore struct {
	byPath map[string]Book
}

func newMemStore() *memStore {
	return &memStore{byPath: make(map[string]Book)}
}

func (m *memStore) List(_ context.Context) ([]Book, error) {
	books := make([]Book, 0, len(m.byPath))
	for _, b := range m.byPath {
		books = append(books, b)
	}
	return books, nil
}

func (m *memStore) Get(_ context.Context, id string) (Book, error) {
	for _, b := range m.byPath {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (m *memStore) GetByPath(_ context.Context, path string) (Book, error) {
	b, ok := m.byPath[path]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (m *memStore) Upsert(_ context.Context, b Book) (Book, error) {
	if existing, ok := m.byPath[b.Path]; ok {
		b.ID = existing.ID
		b.AddedAt = existing.AddedAt
		b.LastOpenedAt = existing.LastOpenedAt
	}
	m.byPath[b.Path] = b
	return b, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	for path, b := range m.byPath {
		if b.ID == id {
			delete(m.byPath, path)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) TouchOpened(_ context.Context, id string, at time.Time) error {
	for path, b := range m.byPath {
		if b.ID == id {
			b.LastOpenedAt = &at
			m.byPath[path] = b
			return nil
		}
	}
	return ErrNotFound
}

var _ Store = (*memStore)(nil)

func writeBookFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	alphaPath := writeBookFile(t, root, "alpha.md", "# Alpha Book\n\nSome prose.\n")
	writeBookFile(t, root, "sub/beta.md", "# Beta Book\n\nMore prose.\n")
	writeBookFile(t, root, "ignore.pdf", "%PDF-1.4")

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	results, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 2, results[0].Found)
	assert.Equal(t, 2, results[0].Added)
	assert.Zero(t, results[0].Updated)
	assert.Zero(t, results[0].Failed)

	alpha, err := store.GetByPath(context.Background(), alphaPath)
	require.NoError(t, err)
	assert.NotEmpty(t, alpha.ID)
	assert.NotEmpty(t, alpha.Hash)
	assert.Equal(t, "Alpha Book", alpha.Title)
	assert.GreaterOrEqual(t, alpha.Chapters, 1)
	assert.Positive(t, alpha.SizeBytes)
	assert.False(t, alpha.AddedAt.IsZero())
}

func TestScanner_Scan_UnchangedSkipped(t *testing.T) {
	root := t.TempDir()
	path := writeBookFile(t, root, "book.md", "# Stable\n\ntext\n")

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	_, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	first, err := store.GetByPath(context.Background(), path)
	require.NoError(t, err)

	results, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].Found)
	assert.Zero(t, results[0].Added)
	assert.Zero(t, results[0].Updated)

	second, err := store.GetByPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "rescan should not mint a new ID")
}

func TestScanner_Scan_ModifiedReindexed(t *testing.T) {
	root := t.TempDir()
	path := writeBookFile(t, root, "book.md", "# Growing\n\nshort\n")

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	_, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	before, err := store.GetByPath(context.Background(), path)
	require.NoError(t, err)

	writeBookFile(t, root, "book.md", "# Growing\n\nconsiderably longer text\n")

	results, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Updated)
	assert.Zero(t, results[0].Added)

	after, err := store.GetByPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "update should keep the row ID")
	assert.NotEqual(t, before.Hash, after.Hash, "content change should change the hash")
}

func TestScanner_Scan_UnreadableCounted(t *testing.T) {
	root := t.TempDir()
	writeBookFile(t, root, "fine.md", "# Fine\n")
	// A directory with a book extension matches the glob but cannot open.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken.md"), 0o755))

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	results, err := scanner.Scan(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, results[0].Found)
	assert.Equal(t, 1, results[0].Added)
	assert.Equal(t, 1, results[0].Failed)
}

func TestScanner_Scan_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeBookFile(t, root, "notes.txt", "plain text novel\n")
	writeBookFile(t, root, "skip.md", "# Skipped\n")

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	results, err := scanner.Scan(context.Background(), []string{root}, []string{"**/*.txt"})
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].Found)
	assert.Equal(t, 1, results[0].Added)
}

func TestScanner_Scan_MultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeBookFile(t, rootA, "a.md", "# A\n")
	writeBookFile(t, rootB, "b.md", "# B\n")
	writeBookFile(t, rootB, "c.md", "# C\n")

	store := newMemStore()
	scanner := NewScanner(store, zerolog.Nop())

	results, err := scanner.Scan(context.Background(), []string{rootA, rootB}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].Found)
	assert.Equal(t, 2, results[1].Found)

	books, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 3)
}

func TestScanner_Scan_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewScanner(newMemStore(), zerolog.Nop())
	_, err := scanner.Scan(ctx, []string{t.TempDir()}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
