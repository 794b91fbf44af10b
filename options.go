package convcache

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svoer/FhirConverter-sub001/internal/codec"
	"github.com/svoer/FhirConverter-sub001/internal/codec/zstdcodec"
	"github.com/svoer/FhirConverter-sub001/internal/evict"
	"github.com/svoer/FhirConverter-sub001/internal/evict/lfu"
	"github.com/svoer/FhirConverter-sub001/internal/evict/lru"
	"github.com/svoer/FhirConverter-sub001/internal/stats"
)

// Defaults used when an option is not provided.
const (
	DefaultMaxMemoryEntries  = 1000
	DefaultMaxDiskEntries    = 10000
	DefaultTTL               = time.Hour
	DefaultMinInputSize      = 10
	DefaultReconcileInterval = 5 * time.Minute
	DefaultDiskTimeout       = 2 * time.Second
	DefaultWriteQueueSize    = 256
	DefaultKeyCacheSize      = 512
)

// Option configures a Service.
type Option interface {
	apply(*options)
}

// options holds the service configuration.
type options struct {
	maxMemoryEntries  int
	maxDiskEntries    int
	ttl               time.Duration
	policy            evict.Policy
	diskDir           string
	diskEnabled       bool
	minInputSize      int
	reconcileInterval time.Duration
	diskTimeout       time.Duration
	writeQueueSize    int
	keyCacheSize      int
	codec             codec.Codec
	stats             stats.Collector
	logger            *zap.Logger
	now               func() time.Time
}

// defaultOptions returns the default configuration: memory-only tier, LRU
// eviction, one-hour TTL.
func defaultOptions() options {
	return options{
		maxMemoryEntries:  DefaultMaxMemoryEntries,
		maxDiskEntries:    DefaultMaxDiskEntries,
		ttl:               DefaultTTL,
		policy:            lru.New(),
		minInputSize:      DefaultMinInputSize,
		reconcileInterval: DefaultReconcileInterval,
		diskTimeout:       DefaultDiskTimeout,
		writeQueueSize:    DefaultWriteQueueSize,
		keyCacheSize:      DefaultKeyCacheSize,
		codec:             zstdcodec.New(),
		stats:             stats.NewNoop(),
		logger:            zap.NewNop(),
		now:               time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithMaxMemoryEntries bounds the in-memory tier. Default is 1000.
func WithMaxMemoryEntries(n int) Option {
	return optionFunc(func(o *options) {
		o.maxMemoryEntries = n
	})
}

// WithMaxDiskEntries bounds the disk tier; reconciliation enforces the
// bound. Default is 10000.
func WithMaxDiskEntries(n int) Option {
	return optionFunc(func(o *options) {
		o.maxDiskEntries = n
	})
}

// WithTTL sets the entry lifetime. Default is one hour.
func WithTTL(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.ttl = d
	})
}

// WithEvictionPolicy sets the eviction policy for both tiers. The policy
// is fixed for the life of the service. Default is LRU.
func WithEvictionPolicy(p evict.Policy) Option {
	return optionFunc(func(o *options) {
		o.policy = p
	})
}

// WithDiskDirectory enables the disk tier rooted at dir.
// Without this option the cache is memory-only.
func WithDiskDirectory(dir string) Option {
	return optionFunc(func(o *options) {
		o.diskDir = dir
		o.diskEnabled = dir != ""
	})
}

// WithMinInputSize sets the minimum raw input size, in bytes, worth
// caching. Smaller inputs bypass both tiers. Default is 10.
func WithMinInputSize(n int) Option {
	return optionFunc(func(o *options) {
		o.minInputSize = n
	})
}

// WithReconcileInterval sets how often the disk tier is swept for expired
// and excess records. Default is five minutes.
func WithReconcileInterval(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.reconcileInterval = d
	})
}

// WithDiskTimeout bounds each disk read and write. On timeout a read is a
// miss and a write is dropped. Default is two seconds.
func WithDiskTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.diskTimeout = d
	})
}

// WithWriteQueueSize sets the disk write queue depth. A full queue drops
// writes rather than blocking callers. Default is 256.
func WithWriteQueueSize(n int) Option {
	return optionFunc(func(o *options) {
		o.writeQueueSize = n
	})
}

// WithKeyCacheSize sets the derived-key memoization cache size. Zero
// disables memoization. Default is 512.
func WithKeyCacheSize(n int) Option {
	return optionFunc(func(o *options) {
		o.keyCacheSize = n
	})
}

// WithCodec sets the compression codec for persisted records.
// Default is zstd.
func WithCodec(c codec.Codec) Option {
	return optionFunc(func(o *options) {
		o.codec = c
	})
}

// WithStats sets the stats collector. Default is a no-op collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}

// ParsePolicy maps a configuration name to an eviction policy.
// Accepted names are "lru" and "lfu".
func ParsePolicy(name string) (evict.Policy, error) {
	switch strings.ToLower(name) {
	case "lru":
		return lru.New(), nil
	case "lfu":
		return lfu.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown eviction policy %q", ErrInvalidConfig, name)
	}
}

// validate fails fast on configuration the cache cannot run with.
func (o *options) validate() error {
	if o.maxMemoryEntries < 1 {
		return fmt.Errorf("%w: max memory entries must be at least 1, got %d", ErrInvalidConfig, o.maxMemoryEntries)
	}
	if o.ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, o.ttl)
	}
	if o.policy == nil {
		return fmt.Errorf("%w: eviction policy is required", ErrInvalidConfig)
	}
	if o.minInputSize < 0 {
		return fmt.Errorf("%w: min input size cannot be negative, got %d", ErrInvalidConfig, o.minInputSize)
	}
	if o.keyCacheSize < 0 {
		return fmt.Errorf("%w: key cache size cannot be negative, got %d", ErrInvalidConfig, o.keyCacheSize)
	}
	if o.diskEnabled {
		if o.maxDiskEntries < 1 {
			return fmt.Errorf("%w: max disk entries must be at least 1, got %d", ErrInvalidConfig, o.maxDiskEntries)
		}
		if o.reconcileInterval <= 0 {
			return fmt.Errorf("%w: reconcile interval must be positive, got %s", ErrInvalidConfig, o.reconcileInterval)
		}
		if o.diskTimeout <= 0 {
			return fmt.Errorf("%w: disk timeout must be positive, got %s", ErrInvalidConfig, o.diskTimeout)
		}
		if o.writeQueueSize < 1 {
			return fmt.Errorf("%w: write queue size must be at least 1, got %d", ErrInvalidConfig, o.writeQueueSize)
		}
	}
	return nil
}
