package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Request kind label values.
const (
	KindPattern  = "pattern"
	KindReaction = "reaction"
	KindCompare  = "compare"
	KindBatch    = "batch"
)

var (
	sizeBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024}
	tieBuckets  = []float64{1, 2, 3, 4, 6, 8, 12, 24, 48}
)

// CanonMetrics holds every metric the services emit. All Record methods are
// safe on a nil receiver so callers without metrics can pass nil.
type CanonMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        *prometheus.GaugeVec

	CanonRequestsTotal *prometheus.CounterVec
	CanonDuration      *prometheus.HistogramVec
	CanonAtoms         *prometheus.HistogramVec
	SearchExpanded     *prometheus.HistogramVec
	SearchTieGroup     *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	RulesImportedTotal  *prometheus.CounterVec
	RuleDuplicatesTotal *prometheus.CounterVec

	JobsTotal     *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	ServiceUptime *prometheus.GaugeVec
}

// NewCanonMetrics registers the service metrics on c.
func NewCanonMetrics(c *Collector) *CanonMetrics {
	return &CanonMetrics{
		HTTPRequestsTotal:   c.Counter("http_requests_total", "HTTP requests by method, route and status.", "method", "route", "status"),
		HTTPRequestDuration: c.Histogram("http_request_duration_seconds", "HTTP request latency.", nil, "method", "route"),
		HTTPInFlight:        c.Gauge("http_requests_in_flight", "HTTP requests being served."),

		CanonRequestsTotal: c.Counter("canon_requests_total", "Canonicalization requests by kind and result.", "kind", "result"),
		CanonDuration:      c.Histogram("canon_duration_seconds", "Canonicalization latency by kind.", nil, "kind"),
		CanonAtoms:         c.Histogram("canon_atoms", "Atoms per canonicalized pattern.", sizeBuckets, "kind"),
		SearchExpanded:     c.Histogram("search_expanded_paths", "Partial paths expanded per fragment search.", sizeBuckets, "kind"),
		SearchTieGroup:     c.Histogram("search_tie_group_size", "Tied best paths per fragment search.", tieBuckets, "kind"),

		CacheHitsTotal:   c.Counter("cache_hits_total", "Result cache hits.", "kind"),
		CacheMissesTotal: c.Counter("cache_misses_total", "Result cache misses.", "kind"),

		RulesImportedTotal:  c.Counter("rules_imported_total", "Rules written to the rule library.", "library"),
		RuleDuplicatesTotal: c.Counter("rule_duplicates_total", "Imported rules whose canonical form already existed.", "library"),

		JobsTotal:     c.Counter("jobs_total", "Queued canonicalization jobs by topic and result.", "topic", "result"),
		ErrorsTotal:   c.Counter("errors_total", "Errors by component and code.", "component", "code"),
		ServiceUptime: c.Gauge("service_uptime_seconds", "Seconds since the service started.", "service"),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *CanonMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordCanon records one canonicalization call.
func (m *CanonMetrics) RecordCanon(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.CanonRequestsTotal.WithLabelValues(kind, result).Inc()
	m.CanonDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSearch records the size of one fragment search.
func (m *CanonMetrics) RecordSearch(kind string, atoms, expanded, ties int) {
	if m == nil {
		return
	}
	m.CanonAtoms.WithLabelValues(kind).Observe(float64(atoms))
	m.SearchExpanded.WithLabelValues(kind).Observe(float64(expanded))
	m.SearchTieGroup.WithLabelValues(kind).Observe(float64(ties))
}

// RecordCache records a cache lookup outcome.
func (m *CanonMetrics) RecordCache(kind string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordImport records the outcome of a rule import.
func (m *CanonMetrics) RecordImport(library string, imported, duplicates int) {
	if m == nil {
		return
	}
	m.RulesImportedTotal.WithLabelValues(library).Add(float64(imported))
	m.RuleDuplicatesTotal.WithLabelValues(library).Add(float64(duplicates))
}

// RecordJob records one processed queue message.
func (m *CanonMetrics) RecordJob(topic string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.JobsTotal.WithLabelValues(topic, result).Inc()
}

// RecordError counts an error by component and error code.
func (m *CanonMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// SetUptime publishes the uptime of service.
func (m *CanonMetrics) SetUptime(service string, started time.Time) {
	if m == nil {
		return
	}
	m.ServiceUptime.WithLabelValues(service).Set(time.Since(started).Seconds())
}

//Personal.AI order the ending
