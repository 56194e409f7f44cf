// Package state persists the inventory agent's unit state: reactive
// flags, the last-seen charm configuration, and recorded package
// installs. The backing store is a small SQLite database in the agent
// data directory, surviving process and hook restarts.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// configKey is the kv slot holding the last-seen charm configuration.
const configKey = "charm-config"

// Store is the SQLite-backed unit state database.
type Store struct {
	db *sql.DB
}

// Open opens the state database at path, creating the file and schema
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	// Serialize access; the agent is single-operator and the pure-Go
	// driver returns busy errors under concurrent writers.
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flags (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS packages (
			name         TEXT PRIMARY KEY,
			installed_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing state schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetFlag raises a flag. Setting an already-set flag is a no-op.
func (s *Store) SetFlag(name string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO flags (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("setting flag %s: %w", name, err)
	}
	return nil
}

// ClearFlag lowers a flag. Clearing an unset flag is a no-op.
func (s *Store) ClearFlag(name string) error {
	_, err := s.db.Exec(`DELETE FROM flags WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("clearing flag %s: %w", name, err)
	}
	return nil
}

// HasFlag reports whether a flag is currently set.
func (s *Store) HasFlag(name string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM flags WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking flag %s: %w", name, err)
	}
	return true, nil
}

// Flags returns all set flags in sorted order.
func (s *Store) Flags() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM flags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	defer rows.Close()

	var flags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		flags = append(flags, name)
	}
	return flags, rows.Err()
}

// Put stores a JSON-encoded value under key, replacing any previous value.
func (s *Store) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, string(data)); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Get loads the value stored under key into dest and reports whether
// the key existed.
func (s *Store) Get(key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a kv entry. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// SavedConfig returns the charm configuration recorded by the last
// config-changed hook, and whether one was recorded at all.
func (s *Store) SavedConfig() (map[string]any, bool, error) {
	cfg := make(map[string]any)
	found, err := s.Get(configKey, &cfg)
	return cfg, found, err
}

// SaveConfig records the charm configuration for later change detection.
func (s *Store) SaveConfig(cfg map[string]any) error {
	return s.Put(configKey, cfg)
}

// RecordPackages records OS packages the agent installed, so a later
// stop hook can account for them. Already-recorded names are kept.
func (s *Store) RecordPackages(names []string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, name := range names {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO packages (name, installed_at) VALUES (?, ?)`, name, now); err != nil {
			return fmt.Errorf("recording package %s: %w", name, err)
		}
	}
	return nil
}

// RecordedPackages returns the recorded package names in sorted order.
func (s *Store) RecordedPackages() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM packages ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UnrecordPackages forgets all recorded package installs.
func (s *Store) UnrecordPackages() error {
	if _, err := s.db.Exec(`DELETE FROM packages`); err != nil {
		return fmt.Errorf("unrecording packages: %w", err)
	}
	return nil
}
