package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	calendarSync    *prometheus.CounterVec
	calendarCall    *prometheus.HistogramVec
	lockContention  prometheus.Counter
	cacheLookups    *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	syncSucceeded        uint64
	syncSkipped          uint64
	syncFailed           uint64
}

// MetricsSnapshot summarises process counters for the status endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CalendarSyncSucceeded    uint64    `json:"calendar_sync_succeeded"`
	CalendarSyncSkipped      uint64    `json:"calendar_sync_skipped"`
	CalendarSyncFailed       uint64    `json:"calendar_sync_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// NewMetricsService registers core Prometheus collectors.
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

	calendarSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_sync_total",
		Help: "Calendar synchronisation outcomes by operation",
	}, []string{"operation", "outcome"})

	calendarCall := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calendar_remote_call_seconds",
		Help:    "Latency of remote calendar calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"call", "result"})

	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_lock_contention_total",
		Help: "Writes rejected because the record was locked",
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, calendarSync, calendarCall, lockContention, cacheLookups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		calendarSync:    calendarSync,
		calendarCall:    calendarCall,
		lockContention:  lockContention,
		cacheLookups:    cacheLookups,
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

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCalendarSync counts a coordinator outcome. Failures are labelled by
// error kind and skips by reason.
func (m *MetricsService) RecordCalendarSync(operation string, result models.SyncResult) {
	if m == nil {
		return
	}
	outcome := string(result.Status)
	switch result.Status {
	case models.SyncFailed:
		outcome += ":" + string(result.ErrorKind)
		atomic.AddUint64(&m.syncFailed, 1)
	case models.SyncSkipped:
		outcome += ":" + string(result.Reason)
		atomic.AddUint64(&m.syncSkipped, 1)
	default:
		atomic.AddUint64(&m.syncSucceeded, 1)
	}
	m.calendarSync.WithLabelValues(operation, outcome).Inc()
}

// ObserveCalendarCall records the latency of one remote calendar call.
func (m *MetricsService) ObserveCalendarCall(call string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.calendarCall.WithLabelValues(call, result).Observe(duration.Seconds())
}

// RecordLockContention counts a write rejected by the record lock.
func (m *MetricsService) RecordLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CalendarSyncSucceeded:    atomic.LoadUint64(&m.syncSucceeded),
		CalendarSyncSkipped:      atomic.LoadUint64(&m.syncSkipped),
		CalendarSyncFailed:       atomic.LoadUint64(&m.syncFailed),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
