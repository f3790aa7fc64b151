// Package localstore persists guest history and collections in an embedded
// SQLite key/value table.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
)

// Well-known keys. Each holds one JSON document that is replaced wholesale.
const (
	KeyHistory     = "assertify.history"
	KeyCollections = "assertify.collections"
	KeyGuestOptIn  = "assertify.guest"
)

// Store is the client-local store. Every operation is synchronous and total:
// read failures and corrupt values degrade to empty results, write failures
// are logged.
type Store struct {
	db  *sql.DB
	log *log.Logger
	mu  sync.Mutex
}

// NewStore opens (or creates) the store at dbPath. Use ":memory:" in tests.
func NewStore(dbPath string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, log: logger.With("component", "localstore")}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

// ReadHistory returns the guest history, newest first.
func (s *Store) ReadHistory() []history.Item {
	var items []history.Item
	if !s.read(KeyHistory, &items) || items == nil {
		return []history.Item{}
	}
	return items
}

// WriteHistory replaces the guest history.
func (s *Store) WriteHistory(items []history.Item) {
	if items == nil {
		items = []history.Item{}
	}
	s.write(KeyHistory, items)
}

// ReadCollections returns the guest collections.
func (s *Store) ReadCollections() []collection.Collection {
	var cols []collection.Collection
	if !s.read(KeyCollections, &cols) || cols == nil {
		return []collection.Collection{}
	}
	return cols
}

// WriteCollections replaces the guest collections.
func (s *Store) WriteCollections(cols []collection.Collection) {
	if cols == nil {
		cols = []collection.Collection{}
	}
	s.write(KeyCollections, cols)
}

// Empty reports whether there is nothing to migrate.
func (s *Store) Empty() bool {
	return len(s.ReadHistory()) == 0 && len(s.ReadCollections()) == 0
}

// Clear removes both persisted sequences. The guest preference is kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM kv WHERE key IN (?, ?)", KeyHistory, KeyCollections); err != nil {
		s.log.Error("clearing local store", "err", err)
	}
}

// GuestOptIn reports whether the user chose to continue as a guest.
func (s *Store) GuestOptIn() bool {
	var v bool
	s.read(KeyGuestOptIn, &v)
	return v
}

// SetGuestOptIn records the guest choice; false removes it.
func (s *Store) SetGuestOptIn(v bool) {
	if v {
		s.write(KeyGuestOptIn, true)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", KeyGuestOptIn); err != nil {
		s.log.Error("clearing guest preference", "err", err)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) read(key string, dst any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.log.Error("reading local store", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn("discarding corrupt local value", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Store) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encoding local value", "key", key, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.log.Error("writing local store", "key", key, "err", err)
	}
}
