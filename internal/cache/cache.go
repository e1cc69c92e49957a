// Package cache stores token verification outcomes so repeated
// presentations of the same token skip signature verification.
package cache

import (
	"context"
	"time"
)

// Entry is a cached verification outcome.
type Entry struct {
	Valid  bool
	Expiry time.Time
}

// Expired reports whether the entry's expiry is before now.
func (e Entry) Expired(now time.Time) bool {
	return e.Expiry.Before(now)
}

// Cache maps a raw token to its verification outcome.
//
// Get reports a miss for absent and expired entries, evicting expired ones.
// Set only inserts when no entry exists; an existing outcome is never
// replaced before it expires.
type Cache interface {
	Get(ctx context.Context, token string) (Entry, bool, error)
	Set(ctx context.Context, token string, entry Entry) error
}
