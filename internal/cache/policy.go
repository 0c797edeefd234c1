package cache

import "time"

// TTL pairs the two validity windows used by the result queries: a short one
// while an election is still accepting votes (so live tallies stay current)
// and a long one once it has ended and its data is immutable.
type TTL struct {
	Active time.Duration
	Ended  time.Duration
}

// For resolves the window for an election's activity state.
func (t TTL) For(active bool) time.Duration {
	if active {
		return t.Active
	}
	return t.Ended
}
