// Package evict defines the eviction policy interface shared by the memory
// and disk tiers.
package evict

import (
	"sort"
	"time"
)

// Candidate is the metadata a policy ranks. It is a snapshot: policies never
// see live entries, so ranking can run without holding store locks.
type Candidate struct {
	Key          string
	LastAccessed time.Time
	AccessCount  int64
}

// Policy orders eviction candidates. Less reports whether a should be
// evicted before b. Implementations must be a strict weak order and must
// break ties on the lexicographically smaller key so eviction is
// reproducible.
type Policy interface {
	// Name returns the policy's configuration name ("lru" or "lfu").
	Name() string

	// Less reports whether a ranks ahead of b in eviction order.
	Less(a, b Candidate) bool
}

// SelectVictim returns the key of the candidate the policy would evict
// first. Returns false if candidates is empty.
func SelectVictim(p Policy, candidates []Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	victim := candidates[0]
	for _, c := range candidates[1:] {
		if p.Less(c, victim) {
			victim = c
		}
	}
	return victim.Key, true
}

// Rank sorts candidates in place into eviction order, first victim first.
func Rank(p Policy, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return p.Less(candidates[i], candidates[j])
	})
}
