// Package prometheus provides a Prometheus-backed stats collector.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/svoer/FhirConverter-sub001/internal/stats"
)

// Collector implements stats.Collector using Prometheus instruments.
// The cache's metric set is fixed (stats.Names), so every instrument is
// created and registered up front; the hot path is a map lookup plus an
// Add/Set.
type Collector struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a collector with all cache metrics registered on registry.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	c := &Collector{
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}

	for _, name := range stats.Names {
		if stats.IsGauge(name) {
			g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
			c.gauges[name] = register(registry, g)
		} else {
			cnt := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
			c.counters[name] = register(registry, cnt)
		}
	}

	return c
}

// IncCounter increments a counter metric. Unknown names are ignored.
func (c *Collector) IncCounter(name string, delta int64) {
	if counter, ok := c.counters[name]; ok {
		counter.Add(float64(delta))
	}
}

// SetGauge sets a gauge metric. Unknown names are ignored.
func (c *Collector) SetGauge(name string, value int64) {
	if gauge, ok := c.gauges[name]; ok {
		gauge.Set(float64(value))
	}
}

// register registers m, reusing the already-registered instrument when two
// collectors share a registry.
func register[M prometheus.Collector](registry prometheus.Registerer, m M) M {
	if err := registry.Register(m); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(M); ok {
				return existing
			}
		}
	}
	return m
}
