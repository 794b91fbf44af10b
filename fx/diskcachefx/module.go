// Package diskcachefx provides an fx module for a disk-backed conversion
// cache.
package diskcachefx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	convcache "github.com/svoer/FhirConverter-sub001"
	"github.com/svoer/FhirConverter-sub001/internal/stats"
	statsprom "github.com/svoer/FhirConverter-sub001/internal/stats/prometheus"
)

// Config holds configuration for the disk-backed cache.
type Config struct {
	// CacheDir is the directory holding persisted conversion records.
	CacheDir string

	// MaxMemoryEntries bounds the in-memory tier. Zero uses the default.
	MaxMemoryEntries int

	// MaxDiskEntries bounds the disk tier. Zero uses the default.
	MaxDiskEntries int

	// TTL is the entry lifetime. Zero uses the default.
	TTL time.Duration

	// Policy names the eviction policy, "lru" or "lfu". Empty means LRU.
	Policy string
}

// Module provides a disk-backed *convcache.Service with Prometheus
// metrics. Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("diskcache",
	fx.Provide(
		newStatsCollector,
		newService,
	),
)

func newStatsCollector() stats.Collector {
	return statsprom.New(nil)
}

// Params holds dependencies for creating the service.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided service.
type Result struct {
	fx.Out

	Service *convcache.Service
}

func newService(p Params) (Result, error) {
	opts := []convcache.Option{
		convcache.WithDiskDirectory(p.Config.CacheDir),
		convcache.WithStats(p.Collector),
		convcache.WithLogger(p.Logger.Named("convcache")),
	}
	if p.Config.MaxMemoryEntries > 0 {
		opts = append(opts, convcache.WithMaxMemoryEntries(p.Config.MaxMemoryEntries))
	}
	if p.Config.MaxDiskEntries > 0 {
		opts = append(opts, convcache.WithMaxDiskEntries(p.Config.MaxDiskEntries))
	}
	if p.Config.TTL > 0 {
		opts = append(opts, convcache.WithTTL(p.Config.TTL))
	}
	if p.Config.Policy != "" {
		policy, err := convcache.ParsePolicy(p.Config.Policy)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, convcache.WithEvictionPolicy(policy))
	}

	service, err := convcache.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return service.Close()
		},
	})

	return Result{Service: service}, nil
}
