// Package sqlite persists the portal's local state (tokens, role,
// profile JSON, remembered logins, the mirrored registration draft) in
// an embedded database, the desktop analogue of browser local storage.
// Token values are sealed at rest with a machine-local key.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bloodlink.org/internal/obs"
)

const schema = `
create table if not exists kv (
	key        text primary key,
	value      text not null,
	updated_at text not null
);`

// Store implements session.Storage over an embedded sqlite database.
type Store struct {
	db      *sql.DB
	sealKey *[32]byte
}

// Option configures a Store.
type Option func(*Store)

// WithSealKey supplies the 32-byte key used to seal token values.
// Open derives one from a key file automatically; tests inject theirs.
func WithSealKey(key *[32]byte) Option {
	return func(s *Store) { s.sealKey = key }
}

// New wraps an already opened database. The schema must exist; Open is
// the usual entry point.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlite: db is required")
	}
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open opens (creating if needed) the database at path and ensures the
// schema and the seal key file alongside it.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	key, err := loadOrCreateSealKey(path + ".key")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, WithSealKey(key))
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for maintenance tooling.
func (s *Store) DB() *sql.DB { return s.db }

// Get implements session.Storage. Lookup trouble is logged and reported
// as absence; the session layer treats missing keys as unauthenticated,
// never as a crash.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`select value from kv where key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false
	case err != nil:
		obs.LogEvent("storage_get_failed", map[string]any{"key": key, "error": err.Error()})
		return "", false
	}
	if isSecretKey(key) {
		plain, err := s.unseal(value)
		if err != nil {
			obs.LogEvent("storage_unseal_failed", map[string]any{"key": key, "error": err.Error()})
			return "", false
		}
		return plain, true
	}
	return value, true
}

// Set implements session.Storage.
func (s *Store) Set(key, value string) error {
	if isSecretKey(key) {
		sealed, err := s.seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	_, err := s.db.Exec(`
		insert into kv(key, value, updated_at) values(?, ?, ?)
		on conflict(key) do update set value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Delete implements session.Storage. Deleting an absent key succeeds.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`delete from kv where key = ?`, key)
	return err
}

// isSecretKey reports whether the value must be sealed at rest: the
// generic token plus every per-role token key.
func isSecretKey(key string) bool {
	return key == "token" || strings.HasSuffix(key, "Token")
}
