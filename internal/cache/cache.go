// Package cache stores raw api-db responses in sqlite so repeated
// inventory runs inside the TTL skip the network entirely, the same
// role the runner's inventory cache plays for the upstream plugin.
package cache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is a TTL'd response cache keyed by the full request URL.
type Store struct {
	db   *sql.DB
	ttl  time.Duration
	path string
}

// Open opens (or creates) the cache database under dataDir.
func Open(dataDir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "akips-cache.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to cache database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, ttl: ttl, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	_, err = s.db.Exec(string(schema))
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the cache database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached response lines for url, or false if the entry
// is missing or older than the TTL.
func (s *Store) Get(url string) ([]string, bool) {
	var body string
	var fetchedAt int64
	err := s.db.QueryRow(
		`SELECT body, fetched_at FROM responses WHERE url = ?`, url,
	).Scan(&body, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if s.ttl > 0 && time.Since(time.Unix(fetchedAt, 0)) > s.ttl {
		return nil, false
	}
	if body == "" {
		return []string{}, true
	}
	return strings.Split(body, "\n"), true
}

// Put stores the response lines for url, replacing any previous entry.
func (s *Store) Put(url string, lines []string) error {
	_, err := s.db.Exec(
		`INSERT INTO responses (url, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, strings.Join(lines, "\n"), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("caching response: %w", err)
	}
	return nil
}

// Purge removes every cached response.
func (s *Store) Purge() error {
	_, err := s.db.Exec(`DELETE FROM responses`)
	return err
}

// Info reports the entry count and the oldest fetch time. The zero time
// means the cache is empty.
func (s *Store) Info() (int, time.Time, error) {
	var count int
	var oldest sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), MIN(fetched_at) FROM responses`).Scan(&count, &oldest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, err
	}
	if !oldest.Valid {
		return count, time.Time{}, nil
	}
	return count, time.Unix(oldest.Int64, 0), nil
}
