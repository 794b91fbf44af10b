// Package lru implements least-recently-used eviction.
package lru

import "github.com/svoer/FhirConverter-sub001/internal/evict"

// Compile-time check that Policy implements evict.Policy.
var _ evict.Policy = (*Policy)(nil)

// Policy evicts the entry with the oldest LastAccessed timestamp.
type Policy struct{}

// New returns a new LRU policy.
func New() *Policy {
	return &Policy{}
}

// Name returns "lru".
func (p *Policy) Name() string {
	return "lru"
}

// Less ranks by LastAccessed ascending, smaller key on ties.
func (p *Policy) Less(a, b evict.Candidate) bool {
	if !a.LastAccessed.Equal(b.LastAccessed) {
		return a.LastAccessed.Before(b.LastAccessed)
	}
	return a.Key < b.Key
}
