// Package memstore implements the bounded in-memory cache tier.
package memstore

import (
	"errors"
	"sync"
	"time"

	"github.com/svoer/FhirConverter-sub001/internal/evict"
	"github.com/svoer/FhirConverter-sub001/internal/stats"
	"github.com/svoer/FhirConverter-sub001/internal/store"
)

// ErrInvalidCapacity indicates a non-positive capacity.
var ErrInvalidCapacity = errors.New("memstore: capacity must be at least 1")

// ErrNoPolicy indicates a missing eviction policy.
var ErrNoPolicy = errors.New("memstore: eviction policy is required")

// Store is a bounded map of cache entries guarded by a single mutex.
// All methods are safe for concurrent use. Get hands out clones, so a
// caller can never observe a partially written or later-mutated entry.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*store.Entry
	capacity int
	policy   evict.Policy

	collector stats.Collector
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCollector sets the stats collector. Defaults to a no-op collector.
func WithCollector(c stats.Collector) Option {
	return func(s *Store) { s.collector = c }
}

// WithNow sets the clock. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a memory store holding at most capacity entries, evicting
// per policy on overflow.
func New(capacity int, policy evict.Policy, opts ...Option) (*Store, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if policy == nil {
		return nil, ErrNoPolicy
	}

	s := &Store{
		entries:   make(map[string]*store.Entry),
		capacity:  capacity,
		policy:    policy,
		collector: stats.NewNoop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns a copy of the live entry for key, updating its access
// metadata. Expired entries are purged on access and reported as absent.
func (s *Store) Get(key string) (*store.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.Expired(s.now()) {
		delete(s.entries, key)
		s.collector.SetGauge(stats.MetricMemoryEntries, int64(len(s.entries)))
		return nil, false
	}

	e.Touch(s.now())
	return e.Clone(), true
}

// Put inserts or replaces the entry under entry.Key. If the store then
// exceeds its capacity, victims are evicted per policy until it fits.
// The entry being inserted is never its own victim.
func (s *Store) Put(entry *store.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = entry

	for len(s.entries) > s.capacity {
		candidates := make([]evict.Candidate, 0, len(s.entries)-1)
		for k, e := range s.entries {
			if k == entry.Key {
				continue
			}
			candidates = append(candidates, evict.Candidate{
				Key:          k,
				LastAccessed: e.LastAccessed,
				AccessCount:  e.AccessCount,
			})
		}
		victim, ok := evict.SelectVictim(s.policy, candidates)
		if !ok {
			break
		}
		delete(s.entries, victim)
		s.collector.IncCounter(stats.MetricEvictions, 1)
	}

	s.collector.SetGauge(stats.MetricMemoryEntries, int64(len(s.entries)))
}

// Remove deletes the entry for key, reporting whether it was present.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
		s.collector.SetGauge(stats.MetricMemoryEntries, int64(len(s.entries)))
	}
	return ok
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*store.Entry)
	s.collector.SetGauge(stats.MetricMemoryEntries, 0)
}

// Len returns the number of physically present entries, expired included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Capacity returns the configured maximum entry count.
func (s *Store) Capacity() int {
	return s.capacity
}
