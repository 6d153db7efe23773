package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern/internal/core/config"
	"github.com/lecternapp/lectern/internal/data/db"
	"github.com/lecternapp/lectern/internal/data/stores"
	"github.com/lecternapp/lectern/internal/lectern"
)

// newTestApp wires a real App over a throwaway database.
func newTestApp(t *testing.T, cfg *config.Config) *lectern.App {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = database.Close() })

	return lectern.NewApp(
		stores.NewBookStore(database),
		stores.NewPositionStore(database),
		stores.NewKVStore(database),
		cfg,
		database,
		zerolog.Nop(),
	)
}

func writeBook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
