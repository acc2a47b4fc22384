// Package memory implements the tier port as the process-local L1 cache:
// a mutex-guarded map with per-entry TTLs and a scan-based expiry sweep.
//
// The map is owned by this process only. Under horizontal scaling each
// instance has its own L1 with no cross-instance consistency; it is a pure
// performance optimization, never relied on for correctness.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Strob0t/TierVault/internal/domain/record"
)

type entry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

// Store is the L1 in-process cache. Request handlers and the lifecycle
// sweep touch it concurrently, so every access holds the mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry

	now func() time.Time // for testing
}

// New creates an empty L1 store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetNow overrides the clock. Test use only.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

// Get returns the value for key. An entry whose TTL has elapsed is treated
// as absent even before the sweep physically evicts it.
func (s *Store) Get(_ context.Context, key record.Key) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.CacheKey()]
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(e.insertedAt) >= e.ttl {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put stores value under key with the given TTL, replacing any prior entry.
func (s *Store) Put(_ context.Context, key record.Key, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key.CacheKey()] = entry{value: value, insertedAt: s.now(), ttl: ttl}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(_ context.Context, key record.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key.CacheKey())
	return nil
}

// Sweep scans the map and evicts every expired entry, returning the number
// evicted. Called by the lifecycle manager on its maintenance interval.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for k, e := range s.entries {
		if now.Sub(e.insertedAt) >= e.ttl {
			delete(s.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
