package convcache

// Snapshot is a point-in-time view of cache counters and tier sizes, as
// exposed to the admin surface. Counters increase monotonically for the
// service's lifetime.
type Snapshot struct {
	MemoryEntries  int   `json:"memoryEntries"`
	MemoryCapacity int   `json:"memoryCapacity"`
	DiskEntries    int   `json:"diskEntries"`
	DiskCapacity   int   `json:"diskCapacity"`
	DiskBytes      int64 `json:"diskBytes"`

	MemoryHits int64 `json:"memoryHits"`
	DiskHits   int64 `json:"diskHits"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`

	// Bypasses counts requests below the minimum cacheable input size.
	// They touch neither tier and count as neither hit nor miss.
	Bypasses int64 `json:"bypasses"`

	// DroppedWrites counts disk persists discarded because the write
	// queue was full.
	DroppedWrites int64 `json:"droppedWrites"`

	TotalRequests int64 `json:"totalRequests"`

	// HitRatio is Hits over TotalRequests, in [0, 1]. Zero when no
	// requests have been served.
	HitRatio float64 `json:"hitRatio"`
}
