package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Collection names. Each holds one JSON document that is replaced wholesale
// on every write; there is no row-level state.
const (
	CollectionStudents   = "students"
	CollectionMaterials  = "materials"
	CollectionBroadcasts = "broadcasts"
	CollectionSettings   = "settings"
)

// Store is the process-local durable cache. It is the source of truth for all
// reads; the sync gateway only writes it when absorbing a pulled snapshot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// readRaw returns the stored document for a collection, or nil if absent.
// Read errors are logged and reported as absence so reads never fail upward.
func (s *Store) readRaw(name string) []byte {
	var data string
	err := s.db.QueryRow(`SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		s.logger.Warn("read collection", "collection", name, "error", err)
		return nil
	}
	return []byte(data)
}

// writeRaw replaces a collection's document in one statement.
func (s *Store) writeRaw(name string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("write collection %q: %w", name, err)
	}
	return nil
}

// GetCollection loads a collection as a slice. It never fails: an absent or
// malformed document yields an empty slice, with corruption logged.
func GetCollection[T any](s *Store, name string) []T {
	raw := s.readRaw(name)
	if raw == nil {
		return nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("malformed collection, treating as empty", "collection", name, "error", err)
		return nil
	}
	return items
}

// PutCollection atomically replaces a collection with the given items.
func PutCollection[T any](s *Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal collection %q: %w", name, err)
	}
	return s.writeRaw(name, data)
}

// Upsert replaces the item with a matching key, or appends it. This is a
// read-modify-write over the whole collection with no concurrency control:
// two interleaved upserts can lose one update (last writer wins). Mutations
// are driven by discrete user actions, so the race is accepted, not guarded.
func Upsert[T any](s *Store, name string, item T, key func(T) string) error {
	items := GetCollection[T](s, name)
	k := key(item)
	replaced := false
	for i := range items {
		if key(items[i]) == k {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	return PutCollection(s, name, items)
}

// Remove deletes the item with a matching key, writing the collection back.
// Removing an absent key still rewrites the collection and is not an error.
func Remove[T any](s *Store, name string, id string, key func(T) string) error {
	items := GetCollection[T](s, name)
	kept := items[:0]
	for _, it := range items {
		if key(it) != id {
			kept = append(kept, it)
		}
	}
	return PutCollection(s, name, kept)
}
