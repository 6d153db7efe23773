package library

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for library operations.
var (
	ErrNotFound = errors.New("book not found")
)

// Store defines persistence operations for library entries.
type Store interface {
	// List returns all library entries in unspecified order.
	List(ctx context.Context) ([]Book, error)

	// Get returns the entry with the given ID.
	// Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (Book, error)

	// GetByPath returns the entry for the given absolute path.
	// Returns ErrNotFound if not found.
	GetByPath(ctx context.Context, path string) (Book, error)

	// Upsert inserts the entry, or updates the existing row with the
	// same path while preserving its ID and AddedAt.
	Upsert(ctx context.Context, b Book) (Book, error)

	// Delete removes the entry with the given ID.
	// Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error

	// TouchOpened records that the book was opened at the given time.
	TouchOpened(ctx context.Context, id string, at time.Time) error
}
