// Package db owns the SQLite database: opening with the right pragmas,
// connection pooling, and schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	// DefaultFilename is the database file created inside the data dir.
	DefaultFilename = "lectern.db"

	maxRetries  = 5
	initialWait = 100 * time.Millisecond
)

// OpenOptions tune the connection. DefaultOpenOptions covers every normal
// case; zero fields fall back to the defaults.
type OpenOptions struct {
	Filename     string
	BusyTimeout  int // milliseconds
	MaxOpenConns int
	MaxIdleConns int
	Log          zerolog.Logger
}

func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		Filename:     DefaultFilename,
		BusyTimeout:  5000,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		Log:          zerolog.Nop(),
	}
}

func (o OpenOptions) withDefaults() OpenOptions {
	def := DefaultOpenOptions()
	if o.Filename == "" {
		o.Filename = def.Filename
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = def.BusyTimeout
	}
	if o.MaxOpenConns < 1 {
		o.MaxOpenConns = def.MaxOpenConns
	}
	if o.MaxIdleConns < 1 {
		o.MaxIdleConns = def.MaxIdleConns
	}
	return o
}

// DB wraps a SQL database connection with retry logic and migrations.
type DB struct {
	conn *sql.DB
}

// Open creates the data directory if needed, opens the database with WAL
// and busy-timeout pragmas, verifies connectivity with retry, and applies
// pending migrations.
func Open(dataDir string, opts OpenOptions) (*DB, error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, opts.Filename)

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		dbPath, opts.BusyTimeout,
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(0) // connections live forever

	db := &DB{conn: conn}

	if err := db.pingWithRetry(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateUp(context.Background(), conn, opts.Log); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection for stores to query.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// WithTx executes a function within a transaction.
// If the function returns an error, the transaction is rolled back.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// pingWithRetry attempts to ping the database with exponential backoff.
func (db *DB) pingWithRetry(ctx context.Context) error {
	wait := initialWait
	for i := 0; i < maxRetries; i++ {
		if err := db.conn.PingContext(ctx); err == nil {
			return nil
		}

		if i < maxRetries-1 {
			time.Sleep(wait)
			wait *= 2
		}
	}

	return fmt.Errorf("failed to ping database after %d retries", maxRetries)
}
