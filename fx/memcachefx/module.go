// Package memcachefx provides an fx module for a memory-only conversion
// cache. Useful for testing and for deployments without a cache volume.
package memcachefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	convcache "github.com/svoer/FhirConverter-sub001"
	"github.com/svoer/FhirConverter-sub001/internal/stats"
	"github.com/svoer/FhirConverter-sub001/internal/stats/logger"
)

// Module provides a memory-only *convcache.Service.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memcache",
	fx.Provide(
		newStatsCollector,
		newService,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("convcache.stats"))
}

// Params holds dependencies for creating the service.
type Params struct {
	fx.In

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
	service, err := convcache.New(
		convcache.WithStats(p.Collector),
		convcache.WithLogger(p.Logger.Named("convcache")),
	)
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
