// Package memstore keeps cookies in process memory.
package memstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	cookie  string
	expires time.Time
}

// Store is an in-memory cookie store, safe for concurrent use.
type Store struct {
	lock    sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source, it is used in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Put(_ context.Context, key, cookie string, expires time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.entries[key] = entry{cookie: cookie, expires: expires}
	return nil
}

func (s *Store) Lookup(_ context.Context, key string) (string, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, found := s.entries[key]
	if !found {
		return "", false, nil
	}
	if !e.expires.IsZero() && !e.expires.After(s.now()) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.cookie, true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns number of stored entries, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

func (s *Store) Close() error {
	return nil
}
