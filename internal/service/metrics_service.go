package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the upstream WebUntis calls.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	sessionHitRatio  prometheus.Gauge
	sessionHits      prometheus.Counter
	sessionMisses    prometheus.Counter

	sessionHitCount  uint64
	sessionMissCount uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "untis_upstream_duration_seconds",
		Help:    "Duration of WebUntis calls by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	sessionHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "untis_session_cache_hit_ratio",
		Help: "Ratio of session cache hits to total lookups",
	})

	sessionHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "untis_session_cache_hits_total",
		Help: "Total session cache hits",
	})

	sessionMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "untis_session_cache_misses_total",
		Help: "Total session cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, sessionHitRatio, sessionHits, sessionMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		sessionHitRatio:  sessionHitRatio,
		sessionHits:      sessionHits,
		sessionMisses:    sessionMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstreamCall records the duration of one WebUntis call.
func (m *MetricsService) ObserveUpstreamCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSessionLookup records a session cache hit or miss and refreshes the
// hit ratio gauge.
func (m *MetricsService) RecordSessionLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.sessionHits.Inc()
		atomic.AddUint64(&m.sessionHitCount, 1)
	} else {
		m.sessionMisses.Inc()
		atomic.AddUint64(&m.sessionMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.sessionHitCount)
	misses := atomic.LoadUint64(&m.sessionMissCount)
	total := hits + misses
	if total > 0 {
		m.sessionHitRatio.Set(float64(hits) / float64(total))
	}
}
