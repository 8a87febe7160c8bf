// Package cache is a small SQLite-backed key-value store used to
// memoize translations across runs.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultPath = "var/text_cache.sqlite"

type TextCache struct {
	db *sql.DB
}

// Open creates the database (and its parent directory) if needed.
func Open(path string) (*TextCache, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(
		"CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT, created_at INT)",
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &TextCache{db: db}, nil
}

func (c *TextCache) Get(key string) (string, bool) {
	var value string
	err := c.db.QueryRow("SELECT v FROM kv WHERE k = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *TextCache) Set(key, value string) error {
	_, err := c.db.Exec(
		"INSERT INTO kv (k, v, created_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(k) DO UPDATE SET v=excluded.v, created_at=excluded.created_at",
		key, value, time.Now().Unix(),
	)
	return err
}

func (c *TextCache) Close() error {
	return c.db.Close()
}
