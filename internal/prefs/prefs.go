// Package prefs persists the small client-local state that lives outside the
// synchronization core: the authentication flag and UI preferences such as
// the last-viewed market tab. Everything server-mirrored stays in memory and
// is rebuilt from pulls and pushes on every start.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const (
	keyAuthenticated = "authenticated"
	keyLastMarket    = "last_market"
)

// Store is a key/value preference store backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the preference database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating prefs directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening prefs database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating prefs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetAuthenticated records whether the user has passed the authentication
// gate.
func (s *Store) SetAuthenticated(ok bool) error {
	v := "0"
	if ok {
		v = "1"
	}
	return s.set(keyAuthenticated, v)
}

// Authenticated reports the stored authentication flag; false when never set.
func (s *Store) Authenticated() (bool, error) {
	v, err := s.get(keyAuthenticated)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// SetLastMarket records the last-viewed market tab.
func (s *Store) SetLastMarket(market string) error {
	return s.set(keyLastMarket, market)
}

// LastMarket returns the last-viewed market tab, or "" when never set.
func (s *Store) LastMarket() (string, error) {
	return s.get(keyLastMarket)
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
