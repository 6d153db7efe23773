// Package position defines the saved reading position and its store.
//
// Positions are keyed by document content hash, not library row, so a
// book keeps its place when it is moved, copied, or re-added to the
// library. Both pagination modes persist their own offsets; switching
// modes never clobbers the other mode's place.
package position

import (
	"context"
	"errors"
	"time"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
)

// Sentinel errors for position operations.
var (
	ErrNotFound = errors.New("position not found")
)

// Position is where a reader left off in one document.
type Position struct {
	DocumentID string          `json:"document_id"`
	Mode       paginate.Mode   `json:"mode"`
	View       layout.ViewMode `json:"view"`

	// Chapter plus the mode-specific fields below locate the page.
	// Dynamic mode uses PageIndex, the page within Chapter, so the
	// saved place survives repagination of earlier chapters. Absolute
	// mode uses line offsets within Chapter.
	Chapter    int `json:"chapter"`
	PageIndex  int `json:"page_index"`
	SinglePage int `json:"single_page"`
	LeftPage   int `json:"left_page"`
	RightPage  int `json:"right_page"`

	// Percent is the whole-book completion estimate at save time, kept
	// so the library view can show progress without opening the book.
	Percent   float64   `json:"percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns the starting position for a document.
func New(documentID string) Position {
	return Position{
		DocumentID: documentID,
		Mode:       paginate.ModeDynamic,
		View:       layout.ViewSingle,
	}
}

// Normalize repairs fields that fail validation, falling back to the
// defaults. Stored rows from older versions or hand-edited databases
// load as a usable position instead of failing the open.
func (p Position) Normalize() Position {
	if !p.Mode.Valid() {
		p.Mode = paginate.ModeDynamic
	}
	if !p.View.Valid() {
		p.View = layout.ViewSingle
	}
	if p.Chapter < 0 {
		p.Chapter = 0
	}
	if p.PageIndex < 0 {
		p.PageIndex = 0
	}
	if p.SinglePage < 0 {
		p.SinglePage = 0
	}
	if p.LeftPage < 0 {
		p.LeftPage = 0
	}
	if p.RightPage < 0 {
		p.RightPage = 0
	}
	if p.Percent < 0 || p.Percent > 100 {
		p.Percent = 0
	}
	return p
}

// Store defines persistence operations for reading positions.
type Store interface {
	// Get returns the saved position for a document.
	// Returns ErrNotFound if none was saved.
	Get(ctx context.Context, documentID string) (Position, error)

	// Save inserts or replaces the position for its document.
	Save(ctx context.Context, p Position) error

	// Delete removes the saved position for a document.
	// Deleting a missing position is not an error.
	Delete(ctx context.Context, documentID string) error
}
