package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/lecternapp/lectern/internal/core/layout"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/internal/core/position"
	"github.com/lecternapp/lectern/internal/data/db"
)

// PositionStore implements position.Store using SQLite.
type PositionStore struct {
	db *db.DB
}

var _ position.Store = (*PositionStore)(nil)

// NewPositionStore creates a new SQLite-backed position store.
func NewPositionStore(db *db.DB) *PositionStore {
	return &PositionStore{db: db}
}

// Get returns the saved position for a document.
// Returns ErrNotFound if none was saved.
func (s *PositionStore) Get(ctx context.Context, documentID string) (position.Position, error) {
	row := s.db.Conn().QueryRowContext(ctx, `
		SELECT document_id, mode, view_mode, chapter, page_index, single_page, left_page, right_page, percent, updated_at
		FROM positions WHERE document_id = ?
	`, documentID)

	var (
		p         position.Position
		mode      string
		view      string
		updatedAt int64
	)
	err := row.Scan(&p.DocumentID, &mode, &view, &p.Chapter, &p.PageIndex,
		&p.SinglePage, &p.LeftPage, &p.RightPage, &p.Percent, &updatedAt)
	if IsNotFoundError(err) {
		return position.Position{}, position.ErrNotFound
	}
	if err != nil {
		return position.Position{}, fmt.Errorf("failed to get position: %w", err)
	}

	p.Mode = paginate.Mode(mode)
	p.View = layout.ViewMode(view)
	p.UpdatedAt = time.Unix(0, updatedAt)
	return p, nil
}

// Save inserts or replaces the position for its document.
func (s *PositionStore) Save(ctx context.Context, p position.Position) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO positions (document_id, mode, view_mode, chapter, page_index, single_page, left_page, right_page, percent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			mode = excluded.mode,
			view_mode = excluded.view_mode,
			chapter = excluded.chapter,
			page_index = excluded.page_index,
			single_page = excluded.single_page,
			left_page = excluded.left_page,
			right_page = excluded.right_page,
			percent = excluded.percent,
			updated_at = excluded.updated_at
	`, p.DocumentID, string(p.Mode), string(p.View), p.Chapter, p.PageIndex,
		p.SinglePage, p.LeftPage, p.RightPage, p.Percent, p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Delete removes the saved position for a document. Deleting a missing
// position is not an error.
func (s *PositionStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.db.Conn().ExecContext(ctx, "DELETE FROM positions WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}
