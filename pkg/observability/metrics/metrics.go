// Package metrics exports placement and store events as Prometheus metrics.
//
// A [Collector] implements [observability.Hooks]; register it with
// [observability.SetHooks] and serve [Collector.Handler] on /metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/coinstack/pkg/observability"
)

const namespace = "coinstack"

// Collector counts engine and store events in its own registry.
type Collector struct {
	registry *prometheus.Registry

	spawned    *prometheus.CounterVec
	settled    *prometheus.CounterVec
	overflow   *prometheus.CounterVec
	removed    *prometheus.CounterVec
	reorganize prometheus.Histogram
	blocks     prometheus.Gauge

	loads     *prometheus.CounterVec
	saves     *prometheus.CounterVec
	saveBytes *prometheus.GaugeVec
}

var _ observability.Hooks = (*Collector)(nil)

// New creates a collector with Go runtime and process metrics included.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "blocks_spawned_total",
			Help: "Blocks spawned above the grid.",
		}, []string{"asset"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "blocks_settled_total",
			Help: "Blocks committed to the grid.",
		}, []string{"asset", "relocated"}),
		overflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "blocks_overflow_total",
			Help: "Blocks pinned at top-center because no column fit.",
		}, []string{"asset"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "blocks_removed_total",
			Help: "Blocks removed.",
		}, []string{"asset"}),
		reorganize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "engine", Name: "reorganize_duration_seconds",
			Help:    "Duration of reorganization passes.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "reorganized_blocks",
			Help: "Blocks placed by the last reorganization.",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "loads_total",
			Help: "Portfolio restores by backend and result.",
		}, []string{"backend", "result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "saves_total",
			Help: "Portfolio saves by backend and result.",
		}, []string{"backend", "result"}),
		saveBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "store", Name: "saved_bytes",
			Help: "Size of the last saved portfolio.",
		}, []string{"backend"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.spawned, c.settled, c.overflow, c.removed, c.reorganize, c.blocks,
		c.loads, c.saves, c.saveBytes,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) OnSpawn(asset string, replicas int) {
	c.spawned.WithLabelValues(asset).Add(float64(replicas))
}

func (c *Collector) OnSettle(_, asset string, _, _ int, relocated bool) {
	c.settled.WithLabelValues(asset, strconv.FormatBool(relocated)).Inc()
}

func (c *Collector) OnOverflow(_, asset string) {
	c.overflow.WithLabelValues(asset).Inc()
}

func (c *Collector) OnRemove(_, asset string) {
	c.removed.WithLabelValues(asset).Inc()
}

func (c *Collector) OnReorganize(blocks, _ int, d time.Duration) {
	c.reorganize.Observe(d.Seconds())
	c.blocks.Set(float64(blocks))
}

func (c *Collector) OnLoad(_ context.Context, backend string, _, _ int, err error) {
	c.loads.WithLabelValues(backend, result(err)).Inc()
}

func (c *Collector) OnSave(_ context.Context, backend string, _ int, size int, err error) {
	c.saves.WithLabelValues(backend, result(err)).Inc()
	if err == nil {
		c.saveBytes.WithLabelValues(backend).Set(float64(size))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
