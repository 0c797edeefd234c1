package cache

import "time"

// Cache defines the keyed entry container the result queries read through.
// Entries carry the time they were fetched; whether an entry may still be
// served is decided by the caller via Entry.Fresh, not by the store itself.
type Cache[V any] interface {
	// Get returns the entry for a key and whether one is present.
	Get(key string) (Entry[V], bool)

	// Put stores a freshly fetched value, stamping it with the current time.
	// Writes are last-write-wins per key.
	Put(key string, value V)

	// Invalidate marks an entry stale without discarding its value. A stale
	// value remains servable as a fallback while a refetch is attempted.
	Invalidate(key string)

	// Remove deletes a key entirely. Removing an absent key is a no-op.
	Remove(key string)

	// Len returns the number of entries currently stored.
	Len() int

	// Clear removes all entries.
	Clear()
}

// Entry stores a cached value and the time it was last successfully fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time // zero means invalidated (never fresh)
}

// Fresh reports whether the entry may be served under the given TTL without a
// refetch. An invalidated entry is never fresh.
func (e Entry[V]) Fresh(ttl time.Duration, now time.Time) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}
