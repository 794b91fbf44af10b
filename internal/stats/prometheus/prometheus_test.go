package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/svoer/FhirConverter-sub001/internal/stats"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, m := range metrics {
		if m.GetName() != name || len(m.GetMetric()) == 0 {
			continue
		}
		mm := m.GetMetric()[0]
		if mm.GetCounter() != nil {
			return mm.GetCounter().GetValue(), true
		}
		return mm.GetGauge().GetValue(), true
	}
	return 0, false
}

func TestNew_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	for _, name := range stats.Names {
		if stats.IsGauge(name) {
			c.SetGauge(name, 1)
		} else {
			c.IncCounter(name, 1)
		}
		if _, ok := gatherValue(t, reg, name); !ok {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricMemoryHits, 5)
	c.IncCounter(stats.MetricMemoryHits, 3)

	val, ok := gatherValue(t, reg, stats.MetricMemoryHits)
	if !ok {
		t.Fatalf("counter %s not found", stats.MetricMemoryHits)
	}
	if val != 8 {
		t.Errorf("counter value = %v, want 8", val)
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricMemoryEntries, 42)
	c.SetGauge(stats.MetricMemoryEntries, 17)

	val, ok := gatherValue(t, reg, stats.MetricMemoryEntries)
	if !ok {
		t.Fatalf("gauge %s not found", stats.MetricMemoryEntries)
	}
	if val != 17 {
		t.Errorf("gauge value = %v, want 17", val)
	}
}

func TestCollector_UnknownMetricIgnored(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	// Must not panic or register anything new.
	c.IncCounter("convcache_bogus_total", 1)
	if _, ok := gatherValue(t, reg, "convcache_bogus_total"); ok {
		t.Error("unknown metric was registered")
	}
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.IncCounter(stats.MetricMisses, 1)
	b.IncCounter(stats.MetricMisses, 1)

	val, _ := gatherValue(t, reg, stats.MetricMisses)
	if val != 2 {
		t.Errorf("shared counter value = %v, want 2", val)
	}
}
