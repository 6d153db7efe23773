package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverFromCorruption_Success(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "lectern.db")

	// Create a corrupted database file
	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted data"), 0o644))

	// Create WAL and SHM files
	walPath := dbPath + "-wal"
	shmPath := dbPath + "-shm"
	require.NoError(t, os.WriteFile(walPath, []byte("wal data"), 0o644))
	require.NoError(t, os.WriteFile(shmPath, []byte("shm data"), 0o644))

	require.NoError(t, RecoverFromCorruption(tempDir))

	allFiles, err := filepath.Glob(filepath.Join(tempDir, "lectern.db.corrupt.*"))
	require.NoError(t, err)

	var dbBackups, walBackups, shmBackups []string
	for _, f := range allFiles {
		switch {
		case strings.HasSuffix(f, "-wal"):
			walBackups = append(walBackups, f)
		case strings.HasSuffix(f, "-shm"):
			shmBackups = append(shmBackups, f)
		default:
			dbBackups = append(dbBackups, f)
		}
	}

	assert.Len(t, dbBackups, 1, "expected 1 DB backup, found %v", dbBackups)
	assert.Len(t, walBackups, 1, "expected 1 WAL backup, found %v", walBackups)
	assert.Len(t, shmBackups, 1, "expected 1 SHM backup, found %v", shmBackups)

	// Verify original files no longer exist
	_, err = os.Stat(dbPath)
	assert.Error(t, err, "original database file should not exist after recovery")
	_, err = os.Stat(walPath)
	assert.Error(t, err, "original WAL file should not exist after recovery")
	_, err = os.Stat(shmPath)
	assert.Error(t, err, "original SHM file should not exist after recovery")
}

func TestRecoverFromCorruption_MissingFile(t *testing.T) {
	tempDir := t.TempDir()

	assert.NoError(t, RecoverFromCorruption(tempDir), "recovery should not error on missing file")

	files, _ := filepath.Glob(filepath.Join(tempDir, "*.corrupt.*"))
	assert.Empty(t, files, "expected no backup files for missing DB")
}

func TestRecoverFromCorruption_OnlyDatabase(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "lectern.db")

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted data"), 0o644))

	require.NoError(t, RecoverFromCorruption(tempDir))

	files, _ := filepath.Glob(filepath.Join(tempDir, "lectern.db.corrupt.*"))
	assert.Len(t, files, 1, "expected 1 backup file, found %d", len(files))

	walBackups, _ := filepath.Glob(filepath.Join(tempDir, "*-wal"))
	assert.Empty(t, walBackups, "expected no WAL backups")
}

func TestRecoverFromCorruption_BackupNaming(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "lectern.db")

	require.NoError(t, os.WriteFile(dbPath, []byte("corrupted"), 0o644))

	require.NoError(t, RecoverFromCorruption(tempDir))

	files, _ := filepath.Glob(filepath.Join(tempDir, "lectern.db.corrupt.*"))
	require.Len(t, files, 1, "expected 1 backup file, found %d", len(files))

	// Backup name carries a timestamp: lectern.db.corrupt.YYYYMMDD-HHMMSS
	filename := filepath.Base(files[0])
	assert.True(t, strings.HasPrefix(filename, "lectern.db.corrupt."), "unexpected backup name: %s", filename)
	assert.GreaterOrEqual(t, len(filename), len("lectern.db.corrupt.20060102-150405"), "backup filename too short: %s", filename)

	info, err := os.Stat(files[0])
	require.NoError(t, err, "Stat backup")
	assert.Positive(t, info.Size(), "backup file should not be empty")
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(fmt.Errorf("kv get %q: %w", "k", sql.ErrNoRows)))
	assert.False(t, IsNotFoundError(errors.New("something else")))
	assert.False(t, IsNotFoundError(nil))
}

func TestIsCorruptionError_Messages(t *testing.T) {
	assert.True(t, IsCorruptionError(errors.New("database disk image is malformed")))
	assert.True(t, IsCorruptionError(errors.New("file is not a database")))
	assert.False(t, IsCorruptionError(errors.New("table books has no column named color")))
}
