package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/library"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err, "Open")
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func testBook(id, path string) library.Book {
	return library.Book{
		ID:        id,
		Path:      path,
		Hash:      "hash-" + id,
		Format:    book.FormatEPUB,
		Title:     "Title " + id,
		Author:    "Author",
		Chapters:  12,
		SizeBytes: 4096,
		AddedAt:   time.Now(),
	}
}

func TestBookStore(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert and get", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		want := testBook("b1", "/books/one.epub")
		saved, err := store.Upsert(ctx, want)
		require.NoError(t, err, "Upsert")

		got, err := store.Get(ctx, saved.ID)
		require.NoError(t, err, "Get")
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Hash, got.Hash)
		assert.Equal(t, book.FormatEPUB, got.Format)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Chapters, got.Chapters)
		assert.Nil(t, got.LastOpenedAt)
	})

	t.Run("get not found", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		_, err := store.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("get by path", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		_, err := store.Upsert(ctx, testBook("b1", "/books/one.epub"))
		require.NoError(t, err)

		got, err := store.GetByPath(ctx, "/books/one.epub")
		require.NoError(t, err)
		assert.Equal(t, "b1", got.ID)

		_, err = store.GetByPath(ctx, "/books/other.epub")
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("upsert same path keeps identity", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		first, err := store.Upsert(ctx, testBook("b1", "/books/one.epub"))
		require.NoError(t, err)
		require.NoError(t, store.TouchOpened(ctx, "b1", time.Now()))

		update := testBook("b2-new-id", "/books/one.epub")
		update.Hash = "hash-after-edit"
		update.Title = "Retitled"

		second, err := store.Upsert(ctx, update)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID, "path conflict should keep original ID")
		assert.Equal(t, "hash-after-edit", second.Hash)
		assert.Equal(t, "Retitled", second.Title)
		assert.Equal(t, first.AddedAt.UnixNano(), second.AddedAt.UnixNano())
		assert.NotNil(t, second.LastOpenedAt, "last opened should survive reindex")
	})

	t.Run("list", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		books, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)

		_, err = store.Upsert(ctx, testBook("b1", "/books/one.epub"))
		require.NoError(t, err)
		_, err = store.Upsert(ctx, testBook("b2", "/books/two.epub"))
		require.NoError(t, err)

		books, err = store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("delete", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		_, err := store.Upsert(ctx, testBook("b1", "/books/one.epub"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "b1"))
		_, err = store.Get(ctx, "b1")
		assert.ErrorIs(t, err, library.ErrNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "b1"), library.ErrNotFound)
	})

	t.Run("touch opened", func(t *testing.T) {
		store := NewBookStore(openTestDB(t))

		_, err := store.Upsert(ctx, testBook("b1", "/books/one.epub"))
		require.NoError(t, err)

		at := time.Date(2025, 8, 1, 21, 0, 0, 0, time.UTC)
		require.NoError(t, store.TouchOpened(ctx, "b1", at))

		got, err := store.Get(ctx, "b1")
		require.NoError(t, err)
		require.NotNil(t, got.LastOpenedAt)
		assert.Equal(t, at.UnixNano(), got.LastOpenedAt.UnixNano())

		assert.ErrorIs(t, store.TouchOpened(ctx, "missing", at), library.ErrNotFound)
	})
}
