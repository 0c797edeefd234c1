package cache

import (
	"sync"
	"time"
)

// Store is a lightweight map-backed entry store. The key space is small and
// bounded (one key per logical query), so there is no eviction policy beyond
// explicit invalidation. It is safe for concurrent use.
//
// Construct one Store per subsystem instance rather than sharing a package
// level singleton, so tests can build isolated instances.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
}

// NewStore constructs an empty Store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{
		entries: make(map[string]Entry[V]),
	}
}

// now is a small indirection to allow test stubbing if needed.
var now = time.Now

// Get implements Cache.Get.
func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put implements Cache.Put.
func (s *Store[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry[V]{
		Value:     value,
		FetchedAt: now(),
	}
}

// Invalidate implements Cache.Invalidate. The entry's value is kept (a stale
// value beats no value if the refetch fails) but its fetch timestamp is
// zeroed so it can never be considered fresh again.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return
	}
	e.FetchedAt = time.Time{}
	s.entries[key] = e
}

// Remove implements Cache.Remove.
func (s *Store[V]) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len implements Cache.Len.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear implements Cache.Clear.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry[V])
}

// Ensure Store implements Cache at compile time.
var _ Cache[any] = (*Store[any])(nil)
