package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modshell"

// Cache lookup results
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale"
	CacheCorrupt = "corrupt"
)

// Metrics holds all Prometheus metrics on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Catalog metrics
	ModulesScanned prometheus.Counter
	ModulesSkipped prometheus.Counter
	ScanDuration   prometheus.Histogram

	// Cache metrics
	CacheLookups *prometheus.CounterVec
	CacheWrites  *prometheus.CounterVec

	// Composition metrics
	ResolveFailures  prometheus.Counter
	BuildDuration    *prometheus.HistogramVec
	PartsConstructed *prometheus.CounterVec
	StageParts       *prometheus.CounterVec

	// Activation and navigation metrics
	Dispatches  *prometheus.CounterVec
	Navigations *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON diagnostics API
type Snapshot struct {
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	ModulesSkipped   int64   `json:"modules_skipped"`
	PartsConstructed int64   `json:"parts_constructed"`
	Dispatches       int64   `json:"dispatches"`
	Unhandled        int64   `json:"unhandled"`
	Navigations      int64   `json:"navigations"`
	Vetoed           int64   `json:"vetoed"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of diagnostics HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Diagnostics HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ModulesScanned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_modules_scanned_total",
				Help:      "Total number of modules described by catalog scans",
			},
		),
		ModulesSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_modules_skipped_total",
				Help:      "Total number of modules skipped because they could not be read",
			},
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_scan_duration_seconds",
				Help:      "Catalog scan duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Composition cache lookups by result",
			},
			[]string{"result"},
		),
		CacheWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_writes_total",
				Help:      "Composition cache writes by status",
			},
			[]string{"status"},
		),

		ResolveFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_resolve_failures_total",
				Help:      "Total number of failed graph resolutions",
			},
		),
		BuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_build_duration_seconds",
				Help:      "Composition graph build duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"cache"},
		),
		PartsConstructed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "container_parts_constructed_total",
				Help:      "Part instances constructed by sharing policy",
			},
			[]string{"sharing"},
		),
		StageParts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_parts_activated_total",
				Help:      "Auto-loaded parts activated per lifecycle stage",
			},
			[]string{"stage"},
		),

		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activation_dispatches_total",
				Help:      "Activation events dispatched by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Navigations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigation_requests_total",
				Help:      "Navigation requests by outcome",
			},
			[]string{"outcome"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Shell uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Snapshot returns a copy of the current values
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func (m *Metrics) update(fn func(s *Snapshot)) {
	m.mu.Lock()
	fn(&m.snapshot)
	m.mu.Unlock()
}

// RecordHTTPRequest records a diagnostics HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScan records a finished catalog scan
func (m *Metrics) RecordScan(modules int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ModulesScanned.Add(float64(modules))
	m.ScanDuration.Observe(duration.Seconds())
}

// IncModulesSkipped counts one module the catalog could not read
func (m *Metrics) IncModulesSkipped() {
	if m == nil {
		return
	}
	m.ModulesSkipped.Inc()
	m.update(func(s *Snapshot) { s.ModulesSkipped++ })
}

// RecordCacheLookup records a cache lookup result (hit, miss, stale, corrupt)
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
	m.update(func(s *Snapshot) {
		if result == CacheHit {
			s.CacheHits++
		} else {
			s.CacheMisses++
		}
	})
}

// RecordCacheWrite records a cache write
func (m *Metrics) RecordCacheWrite(err error) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(status(err)).Inc()
}

// IncResolveFailures counts a failed graph resolution
func (m *Metrics) IncResolveFailures() {
	if m == nil {
		return
	}
	m.ResolveFailures.Inc()
}

// RecordBuild records a composition graph build
func (m *Metrics) RecordBuild(cacheHit bool, duration time.Duration) {
	if m == nil {
		return
	}
	label := CacheMiss
	if cacheHit {
		label = CacheHit
	}
	m.BuildDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncPartsConstructed counts one constructed part instance
func (m *Metrics) IncPartsConstructed(sharing string) {
	if m == nil {
		return
	}
	m.PartsConstructed.WithLabelValues(sharing).Inc()
	m.update(func(s *Snapshot) { s.PartsConstructed++ })
}

// AddStageParts counts parts activated by a lifecycle stage
func (m *Metrics) AddStageParts(stage string, n int) {
	if m == nil {
		return
	}
	m.StageParts.WithLabelValues(stage).Add(float64(n))
}

// RecordDispatch records an activation dispatch outcome (handled, unhandled, error)
func (m *Metrics) RecordDispatch(kind, outcome string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(kind, outcome).Inc()
	m.update(func(s *Snapshot) {
		s.Dispatches++
		if outcome == "unhandled" {
			s.Unhandled++
		}
	})
}

// RecordNavigation records a navigation outcome (committed, vetoed, unknown, error)
func (m *Metrics) RecordNavigation(outcome string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(outcome).Inc()
	m.update(func(s *Snapshot) {
		s.Navigations++
		if outcome == "vetoed" {
			s.Vetoed++
		}
	})
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
