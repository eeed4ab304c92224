package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and attendance workflows.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	attendanceRecords   *prometheus.CounterVec
	excuseLettersReview *prometheus.CounterVec
	notificationsQueued *prometheus.CounterVec
	sweepCreated        prometheus.Counter
	reconcileFailures   prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	attendanceRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_total",
		Help: "Attendance records written, by final status",
	}, []string{"status"})

	excuseLettersReview := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "excuse_letters_reviewed_total",
		Help: "Excuse letters reviewed, by decision",
	}, []string{"status"})

	notificationsQueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Notification enqueue attempts, by result",
	}, []string{"result"})

	sweepCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_created_total",
		Help: "Records created by the auto-absent sweep",
	})

	reconcileFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "excuse_letter_reconcile_failures_total",
		Help: "Reviews whose attendance update failed and need an excuse sync",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		attendanceRecords, excuseLettersReview, notificationsQueued, sweepCreated, reconcileFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		attendanceRecords:   attendanceRecords,
		excuseLettersReview: excuseLettersReview,
		notificationsQueued: notificationsQueued,
		sweepCreated:        sweepCreated,
		reconcileFailures:   reconcileFailures,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAttendance counts one persisted attendance record.
func (m *MetricsService) RecordAttendance(status models.AttendanceStatus) {
	if m == nil {
		return
	}
	m.attendanceRecords.WithLabelValues(string(status)).Inc()
}

// RecordSweep counts records created by a sweep run.
func (m *MetricsService) RecordSweep(created int) {
	if m == nil || created <= 0 {
		return
	}
	m.sweepCreated.Add(float64(created))
}

// RecordReconcileFailure counts a review whose attendance update failed.
func (m *MetricsService) RecordReconcileFailure() {
	if m == nil {
		return
	}
	m.reconcileFailures.Inc()
}

// RecordExcuseLetterReview counts a review decision.
func (m *MetricsService) RecordExcuseLetterReview(status models.ExcuseLetterStatus) {
	if m == nil {
		return
	}
	m.excuseLettersReview.WithLabelValues(string(status)).Inc()
}

// RecordNotificationEnqueue counts an enqueue attempt; result is "queued" or "dropped".
func (m *MetricsService) RecordNotificationEnqueue(result string) {
	if m == nil {
		return
	}
	m.notificationsQueued.WithLabelValues(result).Inc()
}
