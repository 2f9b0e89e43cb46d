// Package boltstore persists cookies in a BoltDB file.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	cookieBucket     = "cookies"
	expiryValueBytes = 8
)

// Store implements a cookie store backed by BoltDB.
// Each value is the expiration unix time (8 bytes, big endian) followed by the cookie string.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open creates or opens the database file, missing directories are created.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cookie store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cookieBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
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

func (s *Store) Put(_ context.Context, key, cookie string, expires time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cookieBucket))
		if bucket == nil {
			return fmt.Errorf("cookie bucket missing")
		}
		return bucket.Put([]byte(key), encodeValue(cookie, expires))
	})
}

func (s *Store) Lookup(_ context.Context, key string) (cookie string, found bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cookieBucket))
		if bucket == nil {
			return fmt.Errorf("cookie bucket missing")
		}

		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}

		v, expires, ok := decodeValue(value)
		if !ok || (!expires.IsZero() && !expires.After(s.now())) {
			return bucket.Delete([]byte(key))
		}

		cookie, found = v, true
		return nil
	})
	return cookie, found, err
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cookieBucket))
		if bucket == nil {
			return fmt.Errorf("cookie bucket missing")
		}
		return bucket.Delete([]byte(key))
	})
}

// Cleanup removes all expired cookies.
func (s *Store) Cleanup() error {
	now := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cookieBucket))
		if bucket == nil {
			return fmt.Errorf("cookie bucket missing")
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			_, expires, ok := decodeValue(v)
			if !ok || (!expires.IsZero() && !expires.After(now)) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func encodeValue(cookie string, expires time.Time) []byte {
	buf := make([]byte, expiryValueBytes, expiryValueBytes+len(cookie))
	if !expires.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expires.Unix()))
	}
	return append(buf, cookie...)
}

// decodeValue returns zero expiration for cookies without one.
func decodeValue(value []byte) (string, time.Time, bool) {
	if len(value) < expiryValueBytes {
		return "", time.Time{}, false
	}
	var expires time.Time
	if unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes])); unix > 0 {
		expires = time.Unix(unix, 0)
	}
	return string(value[expiryValueBytes:]), expires, true
}
