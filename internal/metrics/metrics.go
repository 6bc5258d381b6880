// Package metrics exposes Prometheus collectors for scans, the allowlist,
// the AI adapter and the HTTP API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "safeurl"

// AI request outcomes.
const (
	AIOutcomeOK          = "ok"
	AIOutcomeCacheHit    = "cache_hit"
	AIOutcomeError       = "error"
	AIOutcomeRateLimited = "rate_limited"
	AIOutcomeInvalid     = "invalid"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry      *prometheus.Registry
	scans         *prometheus.CounterVec
	allowlistHits prometheus.Counter
	aiRequests    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	danger        prometheus.Histogram
	httpRequests  *prometheus.CounterVec
}

// New creates the collectors. Runtime collectors are added when runtime is true.
func New(runtime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg.MustRegister(collectors.NewGoCollector())
	}

	m := &Metrics{
		registry: reg,
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scans by verdict.",
		}, []string{"verdict"}),
		allowlistHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowlist_hits_total",
			Help:      "Scans short-circuited by the allowlist.",
		}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "AI risk assessments by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time to produce a scan result.",
			Buckets:   prometheus.DefBuckets,
		}),
		danger: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "danger_score",
			Help:      "Danger score of scored (non-allowlisted) URLs.",
			Buckets:   []float64{5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by method and status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(m.scans, m.allowlistHits, m.aiRequests, m.scanDuration, m.danger, m.httpRequests)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveScan records a scored scan.
func (m *Metrics) ObserveScan(verdict types.Verdict, danger float64, took time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(string(verdict)).Inc()
	m.danger.Observe(danger)
	m.scanDuration.Observe(took.Seconds())
}

// ObserveTrusted records a scan that the allowlist answered.
func (m *Metrics) ObserveTrusted(took time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(string(types.VerdictClean)).Inc()
	m.allowlistHits.Inc()
	m.scanDuration.Observe(took.Seconds())
}

// ObserveAI records the outcome of one AI assessment.
func (m *Metrics) ObserveAI(outcome string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one API response.
func (m *Metrics) ObserveHTTP(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
