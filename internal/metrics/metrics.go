// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakatarta_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bakatarta_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// ReviewSubmissions counts submit-review outcomes: accepted, validation,
	// not_found, write_conflict, internal.
	ReviewSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakatarta_review_submissions_total",
			Help: "Review submissions by outcome",
		},
		[]string{"outcome"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakatarta_uploads_total",
			Help: "Image uploads by outcome",
		},
		[]string{"outcome"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bakatarta_upload_bytes_total",
			Help: "Bytes written by successful uploads",
		},
	)

	OllamaRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bakatarta_ollama_requests_total",
			Help: "Recipe generation calls by outcome: success, failure, rejected",
		},
		[]string{"outcome"},
	)

	OllamaDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bakatarta_ollama_request_duration_seconds",
			Help:    "Recipe generation latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
	)

	// OllamaBreakerState is 0 closed, 1 half-open, 2 open.
	OllamaBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bakatarta_ollama_circuit_state",
			Help: "Circuit breaker state for the recipe generator",
		},
	)

	DBPoolConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bakatarta_db_pool_connections",
			Help: "Database pool connections by state",
		},
		[]string{"state"},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordReview counts a review submission outcome.
func RecordReview(outcome string) {
	ReviewSubmissions.WithLabelValues(outcome).Inc()
}

// RecordUpload counts an upload and, on success, its size.
func RecordUpload(outcome string, size int64) {
	Uploads.WithLabelValues(outcome).Inc()
	if outcome == "success" && size > 0 {
		UploadBytes.Add(float64(size))
	}
}

// RecordOllama counts a generation call; d is ignored for rejected calls.
func RecordOllama(outcome string, d time.Duration) {
	OllamaRequests.WithLabelValues(outcome).Inc()
	if outcome != "rejected" {
		OllamaDuration.Observe(d.Seconds())
	}
}

// UpdatePoolStats copies pgxpool statistics into gauges.
func UpdatePoolStats(stat *pgxpool.Stat) {
	if stat == nil {
		return
	}
	DBPoolConns.WithLabelValues("total").Set(float64(stat.TotalConns()))
	DBPoolConns.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	DBPoolConns.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
}
