package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB holds separate read and write connections to the same SQLite file.
// The write handle is limited to a single connection so concurrent upserts
// serialize on it instead of failing with SQLITE_BUSY; reads go through a
// read-only pool that WAL keeps unblocked.
type DB struct {
	write *sql.DB
	read  *sql.DB
}

// NewConnection opens (or creates) the SQLite database at the given path.
func NewConnection(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	write, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	write.SetMaxOpenConns(1)

	// Force the file into existence before the read-only handle touches it.
	if err := write.Ping(); err != nil {
		write.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	read, err := sql.Open("sqlite", path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("failed to open read-only connection: %w", err)
	}

	return &DB{write: write, read: read}, nil
}

// Close closes both connections.
func (db *DB) Close() error {
	var firstErr error
	if err := db.read.Close(); err != nil {
		firstErr = err
	}
	if err := db.write.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
