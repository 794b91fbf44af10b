// Package convcache memoizes HL7-to-FHIR conversion results in a two-tier
// content-addressable cache: a bounded in-memory tier in front of a
// persistent on-disk overflow tier.
//
// Keys are derived from the normalized message content, so the same message
// arriving with different line-ending styles hits the same slot. Lookups
// check memory first and fall back to disk, promoting disk hits back into
// memory. Disk persistence is best-effort and runs off the caller's path;
// a broken disk degrades the cache to always-miss, it never fails a
// conversion.
//
// Example usage:
//
//	cache, err := convcache.New(
//	    convcache.WithDiskDirectory("/var/lib/fhirhub/cache"),
//	    convcache.WithTTL(time.Hour),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	if fhir, ok := cache.Lookup(ctx, hl7Message); ok {
//	    return fhir, nil
//	}
//	fhir := convert(hl7Message) // expensive
//	cache.Store(ctx, hl7Message, fhir)
package convcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	hlru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/svoer/FhirConverter-sub001/internal/evict"
	"github.com/svoer/FhirConverter-sub001/internal/key"
	"github.com/svoer/FhirConverter-sub001/internal/stats"
	"github.com/svoer/FhirConverter-sub001/internal/store"
	"github.com/svoer/FhirConverter-sub001/internal/store/diskstore"
	"github.com/svoer/FhirConverter-sub001/internal/store/memstore"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the service has been closed.
	ErrClosed = errors.New("convcache: service closed")

	// ErrInvalidConfig indicates the service was constructed with
	// configuration it cannot run with.
	ErrInvalidConfig = errors.New("convcache: invalid configuration")

	// ErrUnknownScope indicates an invalidation scope that is neither
	// memory, disk, nor all.
	ErrUnknownScope = errors.New("convcache: unknown invalidation scope")
)

// Scope selects which tier an invalidation clears.
type Scope string

const (
	ScopeMemory Scope = "memory"
	ScopeDisk   Scope = "disk"
	ScopeAll    Scope = "all"
)

// Service is the conversion-result cache. It coordinates the memory and
// disk tiers and is safe for concurrent use by multiple goroutines.
type Service struct {
	memory *memstore.Store
	disk   *diskstore.Store // nil when the disk tier is disabled
	keys   *hlru.Cache[string, string]

	ttl          time.Duration
	minInputSize int
	maxDisk      int
	policy       evict.Policy
	diskTimeout  time.Duration
	sweepEvery   time.Duration

	collector stats.Collector
	logger    *zap.Logger
	now       func() time.Time

	memHits  atomic.Int64
	diskHits atomic.Int64
	misses   atomic.Int64
	bypasses atomic.Int64
	dropped  atomic.Int64

	writeCh chan *store.Entry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// New creates a Service with the given options. Configuration is validated
// up front; this is the only point where the cache refuses to run.
func New(opts ...Option) (*Service, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	memory, err := memstore.New(cfg.maxMemoryEntries, cfg.policy,
		memstore.WithCollector(cfg.stats),
		memstore.WithNow(cfg.now),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		memory:       memory,
		ttl:          cfg.ttl,
		minInputSize: cfg.minInputSize,
		maxDisk:      cfg.maxDiskEntries,
		policy:       cfg.policy,
		diskTimeout:  cfg.diskTimeout,
		sweepEvery:   cfg.reconcileInterval,
		collector:    cfg.stats,
		logger:       cfg.logger,
		now:          cfg.now,
		ctx:          ctx,
		cancel:       cancel,
	}

	if cfg.keyCacheSize > 0 {
		s.keys, err = hlru.New[string, string](cfg.keyCacheSize)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	if cfg.diskEnabled {
		s.disk, err = diskstore.New(cfg.diskDir, cfg.codec,
			diskstore.WithLogger(cfg.logger.Named("disk")),
			diskstore.WithNow(cfg.now),
		)
		if err != nil {
			cancel()
			return nil, err
		}

		s.writeCh = make(chan *store.Entry, cfg.writeQueueSize)
		s.wg.Add(2)
		go s.writerLoop()
		go s.janitorLoop()
	}

	s.logger.Debug("cache initialized",
		zap.Int("maxMemoryEntries", cfg.maxMemoryEntries),
		zap.Int("maxDiskEntries", cfg.maxDiskEntries),
		zap.Duration("ttl", cfg.ttl),
		zap.String("policy", cfg.policy.Name()),
		zap.Bool("diskEnabled", cfg.diskEnabled),
	)

	return s, nil
}

// Lookup returns the memoized conversion result for raw, if any. It checks
// the memory tier first, then disk; a disk hit is promoted back into
// memory. Inputs below the minimum cacheable size miss without touching
// either tier.
func (s *Service) Lookup(ctx context.Context, raw []byte) ([]byte, bool) {
	if s.closed.Load() {
		return nil, false
	}
	s.collector.IncCounter(stats.MetricLookups, 1)

	if len(raw) < s.minInputSize {
		s.bypasses.Add(1)
		s.collector.IncCounter(stats.MetricBypasses, 1)
		return nil, false
	}

	k := s.deriveKey(raw)

	if entry, ok := s.memory.Get(k); ok {
		s.memHits.Add(1)
		s.collector.IncCounter(stats.MetricMemoryHits, 1)
		return entry.Payload, true
	}

	if s.disk != nil {
		if payload, ok := s.lookupDisk(ctx, k); ok {
			s.diskHits.Add(1)
			s.collector.IncCounter(stats.MetricDiskHits, 1)
			return payload, true
		}
	}

	s.misses.Add(1)
	s.collector.IncCounter(stats.MetricMisses, 1)
	return nil, false
}

// lookupDisk reads k from the disk tier and promotes a hit into memory.
func (s *Service) lookupDisk(ctx context.Context, k string) ([]byte, bool) {
	rctx, cancel := context.WithTimeout(ctx, s.diskTimeout)
	defer cancel()

	entry, err := s.disk.Read(rctx, k)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("disk lookup failed", zap.String("key", k), zap.Error(err))
		}
		return nil, false
	}

	entry.Touch(s.now())

	// The caller gets its own copy and the writer its own record; after
	// Put the entry belongs to the memory tier.
	payload := append([]byte(nil), entry.Payload...)
	updated := *entry
	s.memory.Put(entry)
	s.enqueueWrite(&updated)

	return payload, true
}

// Store memoizes payload as the conversion result for raw. The memory tier
// is updated synchronously; disk persistence is queued and best-effort.
// Inputs below the minimum cacheable size are not stored.
func (s *Service) Store(ctx context.Context, raw, payload []byte) {
	if s.closed.Load() {
		return
	}
	if len(raw) < s.minInputSize {
		s.collector.IncCounter(stats.MetricBypasses, 1)
		return
	}

	k := s.deriveKey(raw)
	owned := append([]byte(nil), payload...)
	entry := store.New(k, owned, s.now(), s.ttl)

	// Shallow copy for the disk queue; the payload bytes are immutable
	// and safely shared.
	record := *entry
	s.memory.Put(entry)
	s.collector.IncCounter(stats.MetricStores, 1)
	s.enqueueWrite(&record)
}

// Invalidate removes the entry for raw from both tiers.
func (s *Service) Invalidate(ctx context.Context, raw []byte) {
	if s.closed.Load() {
		return
	}
	k := s.deriveKey(raw)
	s.memory.Remove(k)
	if s.disk != nil {
		if err := s.disk.Delete(k); err != nil {
			s.logger.Warn("disk invalidate failed", zap.String("key", k), zap.Error(err))
		}
	}
}

// Clear empties the requested tier(s). The caller is expected to have
// authorized the operation; the cache applies no access control of its
// own.
func (s *Service) Clear(scope Scope) error {
	if s.closed.Load() {
		return ErrClosed
	}

	switch scope {
	case ScopeMemory:
		s.memory.Clear()
	case ScopeDisk:
		if s.disk != nil {
			return s.disk.Clear()
		}
	case ScopeAll:
		s.memory.Clear()
		if s.disk != nil {
			return s.disk.Clear()
		}
	default:
		return ErrUnknownScope
	}
	return nil
}

// Stats returns a point-in-time snapshot of cache counters and sizes.
// It is read-only and has no side effects.
func (s *Service) Stats() Snapshot {
	snap := Snapshot{
		MemoryEntries:  s.memory.Len(),
		MemoryCapacity: s.memory.Capacity(),
		MemoryHits:     s.memHits.Load(),
		DiskHits:       s.diskHits.Load(),
		Misses:         s.misses.Load(),
		Bypasses:       s.bypasses.Load(),
		DroppedWrites:  s.dropped.Load(),
	}
	snap.Hits = snap.MemoryHits + snap.DiskHits
	snap.TotalRequests = snap.Hits + snap.Misses
	if snap.TotalRequests > 0 {
		snap.HitRatio = float64(snap.Hits) / float64(snap.TotalRequests)
	}

	if s.disk != nil {
		snap.DiskCapacity = s.maxDisk
		count, bytes, err := s.disk.Stats()
		if err != nil {
			s.logger.Warn("disk stats failed", zap.Error(err))
		} else {
			snap.DiskEntries = count
			snap.DiskBytes = bytes
		}
	}

	return snap
}

// Close stops background maintenance, flushes queued disk writes, and
// releases the disk directory lock. After Close every lookup misses and
// every store is ignored.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	s.cancel()
	s.wg.Wait()

	if s.disk != nil {
		return s.disk.Close()
	}
	return nil
}

// deriveKey computes the content key for raw, memoizing recent
// derivations. Every conversion performs a lookup immediately followed by
// a store of the same bytes, so memoization halves the hashing work on
// that path.
func (s *Service) deriveKey(raw []byte) string {
	if s.keys == nil {
		return key.Derive(raw)
	}
	in := string(raw)
	if k, ok := s.keys.Get(in); ok {
		return k
	}
	k := key.Derive(raw)
	s.keys.Add(in, k)
	return k
}

// enqueueWrite hands entry to the disk writer without ever blocking the
// caller. A full queue drops the write; the entry stays served from
// memory and disk convergence is sacrificed.
func (s *Service) enqueueWrite(entry *store.Entry) {
	if s.disk == nil {
		return
	}
	select {
	case s.writeCh <- entry:
	default:
		s.dropped.Add(1)
		s.collector.IncCounter(stats.MetricDroppedWrites, 1)
		s.logger.Warn("disk write queue full, dropping write",
			zap.String("key", entry.Key),
		)
	}
}

// writerLoop drains the write queue. On shutdown it flushes whatever is
// still queued before exiting.
func (s *Service) writerLoop() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.writeCh:
			s.persist(entry)
		case <-s.ctx.Done():
			for {
				select {
				case entry := <-s.writeCh:
					s.persist(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) persist(entry *store.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.diskTimeout)
	defer cancel()

	if err := s.disk.Write(ctx, entry); err != nil {
		s.logger.Warn("disk write failed",
			zap.String("key", entry.Key),
			zap.Error(err),
		)
	}
}

// janitorLoop reconciles the disk tier on a fixed schedule, starting with
// one sweep at startup so a restarted process cleans up whatever the
// previous run left behind.
func (s *Service) janitorLoop() {
	defer s.wg.Done()

	s.reconcile()

	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.reconcile()
		}
	}
}

func (s *Service) reconcile() {
	res, err := s.disk.Reconcile(s.ctx, s.maxDisk, s.policy)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("disk reconcile failed", zap.Error(err))
		}
		return
	}

	s.collector.IncCounter(stats.MetricReconciles, 1)
	s.collector.SetGauge(stats.MetricDiskEntries, int64(res.Remaining))
	if res.Expired > 0 || res.Evicted > 0 {
		s.logger.Debug("disk reconcile",
			zap.Int("expired", res.Expired),
			zap.Int("evicted", res.Evicted),
			zap.Int("remaining", res.Remaining),
		)
	}
}
