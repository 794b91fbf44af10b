// Package store defines the cache entry model shared by the memory and disk
// tiers.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no live record in a tier.
// An absent file, a corrupt record, and an expired entry all surface as
// ErrNotFound; the tiers never report them as distinct failures.
var ErrNotFound = errors.New("store: entry not found")

// Entry is one memoized conversion result. Key and Payload are immutable
// after construction; LastAccessed and AccessCount are the only fields a
// tier may update in place, and only under its own synchronization.
type Entry struct {
	// Key is the hex-encoded content hash of the normalized input.
	Key string

	// Payload is the serialized conversion result. The cache never
	// inspects it.
	Payload []byte

	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
}

// New constructs a live entry created at now with the given lifetime.
func New(key string, payload []byte, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Key:          key,
		Payload:      payload,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}
}

// Expired reports whether the entry is logically absent at now.
// An entry expires at ExpiresAt exactly: a probe at that instant misses.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Touch records a successful read at now.
func (e *Entry) Touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}

// Clone returns a deep copy. Tiers hand out clones so callers can never
// mutate a published entry.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Payload != nil {
		c.Payload = make([]byte, len(e.Payload))
		copy(c.Payload, e.Payload)
	}
	return &c
}
