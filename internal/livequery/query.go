package livequery

import (
	"context"
	"sync"

	"election-results-api/internal/cache"
)

// Query is one consumer's handle on a cached result. Multiple queries for
// the same key share a single fetch pipeline, change registration and
// poller; the last Close tears those down.
type Query[T any] struct {
	c     *Client
	ks    *keyState
	store *cache.Store[T]

	updates chan struct{}

	once   sync.Once
	closed bool
}

// Snapshot returns the current value, whether a fetch is in flight, and the
// error of the most recent fetch (nil after a success). A stale value from
// before a failed refresh is still returned alongside its error, so callers
// can render it with a warning instead of nothing.
func (q *Query[T]) Snapshot() (T, bool, error) {
	q.c.mu.Lock()
	loading := q.ks.inflight > 0
	err := q.ks.lastErr
	q.c.mu.Unlock()

	ent, ok := q.store.Get(q.ks.key)
	if !ok {
		var zero T
		return zero, loading, err
	}
	return ent.Value, loading, err
}

// Updates returns a channel that receives a nudge whenever the query's state
// changes (value refreshed, invalidated, loading toggled). Notifications are
// coalesced; receivers should re-read Snapshot rather than count signals.
func (q *Query[T]) Updates() <-chan struct{} {
	return q.updates
}

// Wait blocks until no fetch is in flight and returns the resulting
// snapshot value and error.
func (q *Query[T]) Wait(ctx context.Context) (T, error) {
	for {
		v, loading, err := q.Snapshot()
		if !loading {
			return v, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.updates:
		}
	}
}

// Refetch performs a live fetch regardless of TTL. It is the explicit,
// caller-triggered retry path; there is no automatic retry loop anywhere
// else. Concurrent refetches for the same key coalesce into one round trip.
func (q *Query[T]) Refetch(ctx context.Context) error {
	q.c.mu.Lock()
	if q.closed {
		q.c.mu.Unlock()
		return ErrQueryClosed
	}
	// A consumer-driven request is also the recovery point for a dropped
	// change subscription.
	q.c.ensureSubscribedLocked(q.ks)
	q.c.mu.Unlock()

	return q.c.doFetch(ctx, q.ks)
}

// Close detaches this consumer. It is idempotent and guaranteed to release
// the shared registrations even if a fetch is in flight.
func (q *Query[T]) Close() {
	q.once.Do(func() {
		q.c.mu.Lock()
		q.closed = true
		q.c.mu.Unlock()
		q.c.detach(q.ks, q.updates)
	})
}
