// Package prometheus exposes the canonicalization service metrics through a
// private Prometheus registry.
package prometheus

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
)

// DefaultBuckets covers sub-millisecond fragments up to multi-second batches.
var DefaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	Buckets              []float64
	ConstLabels          map[string]string
}

// Collector owns a registry and deduplicates metric registration by fully
// qualified name, so two components asking for the same metric share it.
type Collector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu    sync.Mutex
	known map[string]prometheus.Collector
}

// NewCollector creates a Collector with its own registry.
func NewCollector(cfg CollectorConfig, logger logging.Logger) (*Collector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("prometheus: namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = DefaultBuckets
	}

	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: cfg.Namespace,
		}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}

	return &Collector{
		registry: registry,
		config:   cfg,
		logger:   logger,
		known:    make(map[string]prometheus.Collector),
	}, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) register(name string, fresh prometheus.Collector) prometheus.Collector {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, ok := c.known[fq]; ok {
		return existing
	}
	if err := c.registry.Register(fresh); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			c.known[fq] = already.ExistingCollector
			return already.ExistingCollector
		}
		c.logger.Error("failed to register metric", logging.String("name", fq), logging.Err(err))
		return fresh
	}
	c.known[fq] = fresh
	return fresh
}

// Counter registers (or returns the existing) counter vector.
func (c *Collector) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if got, ok := c.register(name, vec).(*prometheus.CounterVec); ok {
		return got
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "counter"))
	return vec
}

// Gauge registers (or returns the existing) gauge vector.
func (c *Collector) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if got, ok := c.register(name, vec).(*prometheus.GaugeVec); ok {
		return got
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "gauge"))
	return vec
}

// Histogram registers (or returns the existing) histogram vector. A nil
// bucket list selects the collector default.
func (c *Collector) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = c.config.Buckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
		Buckets:     buckets,
	}, labels)
	if got, ok := c.register(name, vec).(*prometheus.HistogramVec); ok {
		return got
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "histogram"))
	return vec
}

// Timer measures one operation against a histogram.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

// NewTimer starts a Timer reporting into obs.
func NewTimer(obs prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), obs: obs}
}

// ObserveDuration records the elapsed time and returns it.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.obs != nil {
		t.obs.Observe(d.Seconds())
	}
	return d
}

//Personal.AI order the ending
