package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var _ Database = (*SQLiteDB)(nil)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// For in-memory use pass "file::memory:?cache=shared".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	} else if !strings.Contains(dsn, "_journal_mode") {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// SaveIdentity replaces the stored identity.
func (s *SQLiteDB) SaveIdentity(id Identity) error {
	_, err := s.db.Exec(`
		INSERT INTO identity (slot, email, logged_in_at)
		VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET email = excluded.email, logged_in_at = excluded.logged_in_at`,
		id.Email, id.LoggedInAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// LoadIdentity returns the stored identity or ErrNoIdentity.
func (s *SQLiteDB) LoadIdentity() (*Identity, error) {
	var id Identity
	var loggedInStr string
	err := s.db.QueryRow(`SELECT email, logged_in_at FROM identity WHERE slot = 1`).Scan(&id.Email, &loggedInStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	id.LoggedInAt, _ = time.Parse(time.RFC3339, loggedInStr)
	return &id, nil
}

// ClearIdentity removes the stored identity. Clearing an empty store is not
// an error.
func (s *SQLiteDB) ClearIdentity() error {
	if _, err := s.db.Exec(`DELETE FROM identity WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}
