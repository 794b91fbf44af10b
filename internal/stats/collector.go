// Package stats provides a unified interface for emitting cache metrics.
package stats

// Metric names used throughout the cache.
const (
	MetricLookups       = "convcache_lookups_total"
	MetricMemoryHits    = "convcache_memory_hits_total"
	MetricDiskHits      = "convcache_disk_hits_total"
	MetricMisses        = "convcache_misses_total"
	MetricBypasses      = "convcache_bypasses_total"
	MetricStores        = "convcache_stores_total"
	MetricEvictions     = "convcache_evictions_total"
	MetricDroppedWrites = "convcache_dropped_writes_total"
	MetricReconciles    = "convcache_reconciles_total"
	MetricMemoryEntries = "convcache_memory_entries"
	MetricDiskEntries   = "convcache_disk_entries"
	MetricDiskBytes     = "convcache_disk_bytes"
)

// Names lists every metric the cache emits, in a stable order. Backends
// that pre-register their instruments iterate this.
var Names = []string{
	MetricLookups,
	MetricMemoryHits,
	MetricDiskHits,
	MetricMisses,
	MetricBypasses,
	MetricStores,
	MetricEvictions,
	MetricDroppedWrites,
	MetricReconciles,
	MetricMemoryEntries,
	MetricDiskEntries,
	MetricDiskBytes,
}

// IsGauge reports whether name is a gauge rather than a counter.
func IsGauge(name string) bool {
	switch name {
	case MetricMemoryEntries, MetricDiskEntries, MetricDiskBytes:
		return true
	}
	return false
}

// Collector defines the interface for emitting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)
}
