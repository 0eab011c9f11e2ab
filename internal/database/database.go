package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite store holding the resource/service catalog and all
// booking records. It owns the overlap invariant: the only write path for
// bookings is CreateBookingWithLock.
type DB struct {
	db     *sql.DB
	now    func() time.Time
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Bounded busy_timeout: a writer stuck behind the resource lock fails
	// fast with SQLITE_BUSY and the retry layer decides what to do.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, now: time.Now, logger: logger}, nil
}

// SetClock overrides the time source. The validator layer must use the same
// source so the advisory past-check and the in-transaction re-check agree.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// Now exposes the store's clock for layers that pre-validate slots.
func (db *DB) Now() time.Time {
	return db.now()
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS resources (
            id TEXT PRIMARY KEY,
            display_name TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            lock_version INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS services (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            duration_minutes INTEGER NOT NULL,
            price REAL NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            resource_id TEXT NOT NULL REFERENCES resources(id),
            service_id TEXT NOT NULL,
            start_ts DATETIME NOT NULL,
            end_ts DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            customer_ref TEXT NOT NULL,
            code TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_resource_start ON bookings(resource_id, start_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_ref)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
