package common

import "time"

// IsFresh returns true if the given timestamp is within the TTL.
// A zero timestamp is never fresh.
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt is IsFresh measured against now instead of the wall clock.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
