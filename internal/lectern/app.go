// Package lectern wires stores, configuration, and the pagination engine
// into the services the commands and the TUI consume.
package lectern

import (
	"github.com/rs/zerolog"

	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/core/kv"
	"github.com/lecternapp/lectern/internal/core/paginate"
	"github.com/lecternapp/lectern/internal/core/position"
	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/library"
)

// App is the central entry point for all lectern operations.
// Commands and the TUI consume App instead of cherry-picking raw
// dependencies.
type App struct {
	Library *LibraryService
	Reader  *ReaderService

	Cache     *paginate.Cache
	Config    *config.Config
	Positions position.Store
	DB        *db.DB
	KV        kv.KV
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	books library.Store,
	positions position.Store,
	store kv.KV,
	cfg *config.Config,
	database *db.DB,
	log zerolog.Logger,
) *App {
	cache := paginate.NewCache(store, log)
	return &App{
		Library:   NewLibraryService(books, cfg, log),
		Reader:    NewReaderService(books, positions, cache, cfg, log),
		Cache:     cache,
		Config:    cfg,
		Positions: positions,
		DB:        database,
		KV:        store,
	}
}
