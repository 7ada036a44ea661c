// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Total number of pages processed, labeled by final state.",
		},
		[]string{"state"},
	)

	scraperRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Total number of job records persisted.",
		},
	)

	scraperFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetch_attempts_total",
			Help: "Total number of page fetch attempts, labeled by result.",
		},
		[]string{"result"},
	)

	scraperPersistBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_persist_batches_total",
			Help: "Total number of batch writes, labeled by result.",
		},
		[]string{"result"},
	)

	scraperActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_active_workers",
			Help: "Number of workers currently processing a page.",
		},
	)

	scraperRateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit and politeness wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"reason"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_http_requests_total",
			Help: "Total number of status server requests.",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_http_request_duration_seconds",
			Help:    "Histogram of status server request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for the given final state.
func ObservePage(state string) {
	scraperPagesTotal.WithLabelValues(state).Inc()
}

// ObserveRecords adds n persisted records.
func ObserveRecords(n int) {
	if n > 0 {
		scraperRecordsTotal.Add(float64(n))
	}
}

// ObserveFetchAttempt counts one fetch attempt ("content", "not_found", "transient", "error").
func ObserveFetchAttempt(result string) {
	scraperFetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObservePersist counts one batch write ("success" or "failure").
func ObservePersist(result string) {
	scraperPersistBatchesTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scraperActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scraperActiveWorkers.Dec()
}

// ObserveDelay records a wait introduced before a request.
func ObserveDelay(reason string, d time.Duration) {
	scraperRateLimitDelaysSeconds.WithLabelValues(reason).Observe(d.Seconds())
}

// ObserveHTTPRequest records metrics for a status server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
