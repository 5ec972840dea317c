// Package storage provides the persisted key/value store backing the query
// cache. Entries are scoped to one session: opening a store purges every
// row written by a different session id.
package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store manages the SQLite database holding cache entries.
type Store struct {
	db        *sql.DB
	sessionID string
}

// ErrStoreClosed indicates the underlying database connection is unavailable.
var ErrStoreClosed = errors.New("storage: closed")

// New opens (or creates) the database at dbPath and binds it to sessionID.
// Use ":memory:" for a throwaway in-process database. Rows left behind by
// other sessions are deleted before the store is returned.
func New(dbPath, sessionID string) (*Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			// Cache entries can contain user text; keep the directory private.
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time, multiple readers with WAL.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// Session scope: anything from a previous session is dead weight.
	if _, err := db.Exec(`DELETE FROM cache_entries WHERE session_id != ?`, sessionID); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to purge stale sessions: %w", err)
	}

	return &Store{db: db, sessionID: sessionID}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SessionID returns the session the store is bound to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// KV returns a namespaced view of the store implementing the cache layer's
// Store interface.
func (s *Store) KV(namespace string) *KV {
	return &KV{store: s, namespace: namespace}
}
