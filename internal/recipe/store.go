// internal/recipe/store.go

package recipe

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshInterval is how long a cached recipe set stays fresh before
// the caller should fetch again.
const DefaultRefreshInterval = 24 * time.Hour

const storeSchema = `
CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	is_active  INTEGER NOT NULL DEFAULT 1,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const lastRefreshKey = "last_refresh"

// Store is the local SQLite cache of server recipes. Extraction reads from
// here so it works offline between refreshes.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the recipe cache at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating recipe store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening recipe store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging recipe store: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing recipe store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// ReplaceAll swaps the cached recipe set for the given one and stamps the
// refresh time. The swap is transactional; a failure leaves the previous set
// intact.
func (s *Store) ReplaceAll(recipes []Recipe) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning recipe refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recipes`); err != nil {
		return fmt.Errorf("clearing recipes: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO recipes (id, is_active, payload, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing recipe insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range recipes {
		payload, err := json.Marshal(&recipes[i])
		if err != nil {
			log.Warn().Str("recipe", recipes[i].ID).Err(err).Msg("skipping unencodable recipe")
			continue
		}
		active := 0
		if recipes[i].IsActive {
			active = 1
		}
		if _, err := stmt.Exec(recipes[i].ID, active, string(payload), now); err != nil {
			return fmt.Errorf("inserting recipe %s: %w", recipes[i].ID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO store_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastRefreshKey, now.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("stamping refresh time: %w", err)
	}

	return tx.Commit()
}

// All returns every cached recipe, active or not.
func (s *Store) All() ([]Recipe, error) {
	rows, err := s.db.Query(`SELECT payload FROM recipes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	defer rows.Close()

	var out []Recipe
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning recipe row: %w", err)
		}
		var r Recipe
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			log.Warn().Err(err).Msg("skipping undecodable cached recipe")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastRefresh returns when the cache was last replaced, or false if never.
func (s *Store) LastRefresh() (time.Time, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, lastRefreshKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("reading recipe refresh time failed")
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NeedsRefresh reports whether the cache is older than interval (or empty).
func (s *Store) NeedsRefresh(interval time.Duration) bool {
	last, ok := s.LastRefresh()
	if !ok {
		return true
	}
	return time.Since(last) >= interval
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
