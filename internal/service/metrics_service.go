package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-academic-transition/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	transitionRuns     *prometheus.CounterVec
	transitionStudents *prometheus.CounterVec
	transitionDuration prometheus.Histogram
	batchCommits       prometheus.Counter
	batchSize          prometheus.Histogram
	batchLatency       prometheus.Histogram

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		transitionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transition_runs_total",
			Help: "Academic year transition runs by result",
		}, []string{"result"}),
		transitionStudents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transition_students_total",
			Help: "Students processed by transition outcome",
		}, []string{"outcome"}),
		transitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transition_duration_seconds",
			Help:    "Wall time of academic year transition runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		batchCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transition_batch_commits_total",
			Help: "Document store batches committed by transitions",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transition_batch_size",
			Help:    "Operations per committed batch",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		}),
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transition_batch_commit_seconds",
			Help:    "Latency of batch commits",
			Buckets: prometheus.DefBuckets,
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.transitionRuns, m.transitionStudents, m.transitionDuration, m.batchCommits, m.batchSize, m.batchLatency,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
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
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveBatchCommit records one committed batch.
func (m *MetricsService) ObserveBatchCommit(ops int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchCommits.Inc()
	m.batchSize.Observe(float64(ops))
	m.batchLatency.Observe(duration.Seconds())
}

// RecordStudentOutcome counts one processed student.
func (m *MetricsService) RecordStudentOutcome(outcome models.PromotionOutcome) {
	if m == nil {
		return
	}
	m.transitionStudents.WithLabelValues(string(outcome)).Inc()
}

// RecordTransitionRun records a finished run. result is success, failed or rejected.
func (m *MetricsService) RecordTransitionRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transitionRuns.WithLabelValues(result).Inc()
	if result != "rejected" {
		m.transitionDuration.Observe(duration.Seconds())
	}
}
