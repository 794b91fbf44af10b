// Package lfu implements least-frequently-used eviction.
package lfu

import "github.com/svoer/FhirConverter-sub001/internal/evict"

// Compile-time check that Policy implements evict.Policy.
var _ evict.Policy = (*Policy)(nil)

// Policy evicts the entry with the lowest AccessCount.
type Policy struct{}

// New returns a new LFU policy.
func New() *Policy {
	return &Policy{}
}

// Name returns "lfu".
func (p *Policy) Name() string {
	return "lfu"
}

// Less ranks by AccessCount ascending, smaller key on ties.
func (p *Policy) Less(a, b evict.Candidate) bool {
	if a.AccessCount != b.AccessCount {
		return a.AccessCount < b.AccessCount
	}
	return a.Key < b.Key
}
