// Package metrics exposes Prometheus collectors for the scholarship
// hunter service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal           *prometheus.CounterVec
	runDurationSeconds  prometheus.Histogram
	searchResultsTotal  prometheus.Counter
	pagesTotal          *prometheus.CounterVec
	matchesTotal        prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scholarhunt_runs_total",
				Help: "Total number of pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scholarhunt_run_duration_seconds",
				Help:    "Histogram of pipeline run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		searchResultsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scholarhunt_search_results_total",
				Help: "Total number of search results returned across runs.",
			},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scholarhunt_pages_total",
				Help: "Total number of candidate pages, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		matchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scholarhunt_matches_total",
				Help: "Total number of matched scholarships appended to the store.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method"},
		)
	})
}

// ObserveRun records one finished run.
func ObserveRun(outcome string, elapsed time.Duration) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(elapsed.Seconds())
}

// AddSearchResults counts results returned by one search call.
func AddSearchResults(n int) {
	if searchResultsTotal == nil || n <= 0 {
		return
	}
	searchResultsTotal.Add(float64(n))
}

// IncPage counts one candidate page by processing outcome.
func IncPage(outcome string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(outcome).Inc()
}

// IncMatch counts one appended match.
func IncMatch() {
	if matchesTotal == nil {
		return
	}
	matchesTotal.Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP handlers with request counts and
// latencies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		httpDurationSeconds.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
