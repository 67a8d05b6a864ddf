// Package storage handles data persistence: SQLite database and chart files
// on disk. Both backends satisfy the same ChartStore interface so the
// service layer never branches on which one it was given.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Blank import: registers the SQLite driver.
)

// Schema is embedded directly in the binary — no migration files need to
// exist at runtime.
const schema = `
CREATE TABLE IF NOT EXISTS charts (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol     TEXT NOT NULL UNIQUE,
    image      BLOB NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_charts_symbol ON charts(symbol);
`

// NewDatabase creates a new SQLite connection and runs migrations.
// The constructor creates the resource AND validates it (Ping); if anything
// fails the caller decides what to do — in this service a failure here means
// degraded mode (file backend only), not a crash.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// SQLite pragmas via DSN:
	// - WAL mode: concurrent reads while writing
	// - foreign_keys: referential integrity
	// - busy_timeout: wait up to 5s instead of failing on lock contention
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Ping actually opens the connection (Open is lazy in database/sql)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
