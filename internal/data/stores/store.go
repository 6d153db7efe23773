// Package stores provides the SQLite-backed implementations of the
// domain store interfaces.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lecternapp/lectern/internal/book"
	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/library"
)

// BookStore implements library.Store using SQLite.
type BookStore struct {
	db *db.DB
}

var _ library.Store = (*BookStore)(nil)

// NewBookStore creates a new SQLite-backed book store.
func NewBookStore(db *db.DB) *BookStore {
	return &BookStore{db: db}
}

const bookColumns = "id, path, hash, format, title, author, language, chapters, size_bytes, added_at, last_opened_at"

// List returns all library entries.
func (s *BookStore) List(ctx context.Context) ([]library.Book, error) {
	rows, err := s.db.Conn().QueryContext(ctx, "SELECT "+bookColumns+" FROM books")
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []library.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Get returns a book by ID. Returns ErrNotFound if not found.
func (s *BookStore) Get(ctx context.Context, id string) (library.Book, error) {
	row := s.db.Conn().QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if IsNotFoundError(err) {
		return library.Book{}, library.ErrNotFound
	}
	if err != nil {
		return library.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	return b, nil
}

// GetByPath returns a book by its absolute path. Returns ErrNotFound
// if not found.
func (s *BookStore) GetByPath(ctx context.Context, path string) (library.Book, error) {
	row := s.db.Conn().QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE path = ?", path)
	b, err := scanBook(row)
	if IsNotFoundError(err) {
		return library.Book{}, library.ErrNotFound
	}
	if err != nil {
		return library.Book{}, fmt.Errorf("failed to get book by path: %w", err)
	}
	return b, nil
}

// Upsert inserts the book, or refreshes the existing row with the same
// path. The existing row keeps its ID, AddedAt, and LastOpenedAt.
func (s *BookStore) Upsert(ctx context.Context, b library.Book) (library.Book, error) {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var existingID string
		var existingAddedAt int64
		err := tx.QueryRowContext(ctx,
			"SELECT id, added_at FROM books WHERE path = ?", b.Path,
		).Scan(&existingID, &existingAddedAt)

		switch {
		case err == nil:
			b.ID = existingID
			b.AddedAt = time.Unix(0, existingAddedAt)
		case IsNotFoundError(err):
			// New row; keep the caller's ID and AddedAt.
		default:
			return fmt.Errorf("failed to check existing book: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO books (id, path, hash, format, title, author, language, chapters, size_bytes, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				hash = excluded.hash,
				format = excluded.format,
				title = excluded.title,
				author = excluded.author,
				language = excluded.language,
				chapters = excluded.chapters,
				size_bytes = excluded.size_bytes
		`, b.ID, b.Path, b.Hash, string(b.Format), b.Title, b.Author, b.Language,
			b.Chapters, b.SizeBytes, b.AddedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to upsert book: %w", err)
		}
		return nil
	})
	if err != nil {
		return library.Book{}, err
	}
	return s.GetByPath(ctx, b.Path)
}

// Delete removes a book by ID. Returns ErrNotFound if not found.
func (s *BookStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.Conn().ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if affected == 0 {
		return library.ErrNotFound
	}
	return nil
}

// TouchOpened records when the book was last opened.
func (s *BookStore) TouchOpened(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.Conn().ExecContext(ctx,
		"UPDATE books SET last_opened_at = ? WHERE id = ?", at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to touch book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to touch book: %w", err)
	}
	if affected == 0 {
		return library.ErrNotFound
	}
	return nil
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanBook(row scannable) (library.Book, error) {
	var (
		b          library.Book
		format     string
		addedAt    int64
		lastOpened sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.Path, &b.Hash, &format, &b.Title, &b.Author,
		&b.Language, &b.Chapters, &b.SizeBytes, &addedAt, &lastOpened)
	if err != nil {
		return library.Book{}, err
	}

	b.Format = book.Format(format)
	b.AddedAt = time.Unix(0, addedAt)
	if lastOpened.Valid {
		t := time.Unix(0, lastOpened.Int64)
		b.LastOpenedAt = &t
	}
	return b, nil
}
