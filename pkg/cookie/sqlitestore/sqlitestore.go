// Package sqlitestore persists cookies in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS cookies (
	key     TEXT PRIMARY KEY,
	cookie  TEXT NOT NULL,
	expires INTEGER NOT NULL DEFAULT 0
)`

// Store implements a cookie store backed by SQLite.
// The expires column holds unix seconds, 0 means no expiration.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database, ":memory:" opens an in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cookie store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer, in-memory database exists per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// WithClock replaces the time source, it is used in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, key, cookie string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cookies (key, cookie, expires) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET cookie = excluded.cookie, expires = excluded.expires`,
		key, cookie, unixOrZero(expires),
	)
	if err != nil {
		return fmt.Errorf("put cookie %q: %w", key, err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, key string) (string, bool, error) {
	var cookie string
	var expires int64
	err := s.db.QueryRowContext(ctx, `SELECT cookie, expires FROM cookies WHERE key = ?`, key).Scan(&cookie, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("lookup cookie %q: %w", key, err)
	}

	if expires > 0 && expires <= s.now().Unix() {
		if err := s.Delete(ctx, key); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return cookie, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cookie %q: %w", key, err)
	}
	return nil
}

// Cleanup removes all expired cookies.
func (s *Store) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE expires > 0 AND expires <= ?`, s.now().Unix()); err != nil {
		return fmt.Errorf("cleanup cookies: %w", err)
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
