package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	directory   TEXT NOT NULL,
	file_name   TEXT NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	url         TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
`

var (
	// dbPool is the singleton database connection pool
	dbPool *sql.DB
	// dbOnce ensures the pool is created only once
	dbOnce sync.Once
	// dbErr stores any error from pool creation
	dbErr error
)

// GetDB returns the singleton database connection pool.
// It creates the pool on first call and reuses it for all subsequent calls.
// The console and the CLI subcommands share it for the upload history.
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbPath, err := getDBPath()
		if err != nil {
			dbErr = fmt.Errorf("failed to get database path: %w", err)
			return
		}

		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			dbErr = fmt.Errorf("failed to create database directory: %w", err)
			return
		}

		// Open connection pool. DSN pragmas apply to every connection it opens.
		dbPool, err = sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
		if err != nil {
			dbErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		// Configure connection pool settings
		dbPool.SetMaxOpenConns(4)    // The console and CLI write rarely
		dbPool.SetMaxIdleConns(2)    // Maximum number of idle connections
		dbPool.SetConnMaxLifetime(0) // Connections don't expire (SQLite is local)

		// Test the connection to ensure database is accessible
		if err := dbPool.Ping(); err != nil {
			dbErr = fmt.Errorf("failed to ping database: %w", err)
			dbPool.Close()
			dbPool = nil
			return
		}

		if _, err := dbPool.Exec(schema); err != nil {
			dbErr = fmt.Errorf("failed to create schema: %w", err)
			dbPool.Close()
			dbPool = nil
			return
		}
	})

	if dbErr != nil {
		return nil, dbErr
	}

	return dbPool, nil
}

// CloseDB closes the singleton database connection pool and resets it so
// the next GetDB opens a fresh one.
func CloseDB() error {
	var err error
	if dbPool != nil {
		err = dbPool.Close()
	}
	dbPool = nil
	dbErr = nil
	// Reset the once so a new pool can be created
	dbOnce = sync.Once{}
	return err
}
