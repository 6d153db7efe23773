package paginate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/core/kv"
	"github.com/lecternapp/lectern/internal/core/layout"
)

const keyPrefix = "pagemap:"

// compactPage is the persisted form of one page boundary. Global indexes
// are not stored; they are reassigned when the map is adopted.
type compactPage struct {
	Chapter int `json:"c"`
	Page    int `json:"p"`
	Total   int `json:"t"`
	Start   int `json:"s"`
	End     int `json:"e"`
}

// Cache persists page boundaries keyed by document identity, mode, and
// layout signature. It is strictly best-effort: a failed or invalid load
// is a miss, and a failed save is logged, never surfaced.
type Cache struct {
	store kv.KV
	log   zerolog.Logger
}

func NewCache(store kv.KV, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		log:   log.With().Str("component", "pagecache").Logger(),
	}
}

func cacheKey(docID string, mode Mode, sig layout.Signature) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, docID, mode, sig)
}

// Load returns the cached page map for the document under the given mode
// and signature. Records that are unreadable or no longer describe a full
// tiling of every chapter are treated as misses, so a corrupt cache only
// ever costs a rebuild.
func (c *Cache) Load(ctx context.Context, docID string, mode Mode, sig layout.Signature, chapters int) (*PageMap, bool) {
	key := cacheKey(docID, mode, sig)
	var compact []compactPage
	if err := c.store.Get(ctx, key, &compact); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Debug().Err(err).Str("key", key).Msg("cache entry unreadable, rebuilding")
		}
		return nil, false
	}
	pages, err := expandCompact(compact, chapters)
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache entry invalid, rebuilding")
		return nil, false
	}
	return newPageMap(mode, sig, pages), true
}

// Save persists the map's boundaries. Failures are logged and swallowed; a
// cold cache is never worth failing a read over.
func (c *Cache) Save(ctx context.Context, docID string, m *PageMap) {
	compact := make([]compactPage, 0, len(m.Pages))
	for _, p := range m.Pages {
		compact = append(compact, compactPage{
			Chapter: p.Chapter,
			Page:    p.PageInChapter,
			Total:   p.PagesInChapter,
			Start:   p.StartLine,
			End:     p.EndLine,
		})
	}
	key := cacheKey(docID, m.Mode, m.Signature)
	if err := c.store.Set(ctx, key, compact); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to persist page map")
	}
}

// Has reports whether an entry exists for the document under the given
// mode and signature. It does not validate the entry.
func (c *Cache) Has(ctx context.Context, docID string, mode Mode, sig layout.Signature) bool {
	ok, err := c.store.Has(ctx, cacheKey(docID, mode, sig))
	if err != nil {
		return false
	}
	return ok
}

// Delete removes a single cache entry.
func (c *Cache) Delete(ctx context.Context, docID string, mode Mode, sig layout.Signature) error {
	return c.store.Delete(ctx, cacheKey(docID, mode, sig))
}

// Purge drops every cached map for one document and returns the number of
// entries removed.
func (c *Cache) Purge(ctx context.Context, docID string) (int64, error) {
	return c.store.DeletePrefix(ctx, keyPrefix+docID+":")
}

// PurgeAll drops every cached page map.
func (c *Cache) PurgeAll(ctx context.Context) (int64, error) {
	return c.store.DeletePrefix(ctx, keyPrefix)
}

// expandCompact rebuilds pages from their persisted form, verifying the
// record still tiles all of the document's chapters: contiguous ranges,
// consistent page counts, one chapter group after another.
func expandCompact(compact []compactPage, chapters int) ([]Page, error) {
	if chapters < 1 {
		if len(compact) != 0 {
			return nil, errors.New("pages recorded for empty document")
		}
		return nil, nil
	}
	pages := make([]Page, 0, len(compact))
	i := 0
	for chapter := 0; chapter < chapters; chapter++ {
		if i >= len(compact) {
			return nil, fmt.Errorf("chapter %d missing", chapter)
		}
		total := compact[i].Total
		if total < 1 {
			return nil, fmt.Errorf("chapter %d: bad page count %d", chapter, total)
		}
		for j := 0; j < total; j++ {
			if i >= len(compact) {
				return nil, fmt.Errorf("chapter %d truncated", chapter)
			}
			p := compact[i]
			switch {
			case p.Chapter != chapter || p.Page != j || p.Total != total:
				return nil, fmt.Errorf("chapter %d: page %d out of order", chapter, j)
			case p.End < p.Start:
				return nil, fmt.Errorf("chapter %d: inverted range on page %d", chapter, j)
			case j == 0 && p.Start != 0:
				return nil, fmt.Errorf("chapter %d: first page starts at %d", chapter, p.Start)
			case j > 0 && p.Start != compact[i-1].End+1:
				return nil, fmt.Errorf("chapter %d: gap before page %d", chapter, j)
			}
			pages = append(pages, Page{
				Chapter:        p.Chapter,
				PageInChapter:  p.Page,
				PagesInChapter: p.Total,
				StartLine:      p.Start,
				EndLine:        p.End,
			})
			i++
		}
	}
	if i != len(compact) {
		return nil, fmt.Errorf("%d trailing pages", len(compact)-i)
	}
	return pages, nil
}
