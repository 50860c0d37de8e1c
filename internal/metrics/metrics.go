// Package metrics exposes Prometheus collectors for the llms.txt service.
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
	crawlsTotal                *prometheus.CounterVec
	pagesCrawledTotal          prometheus.Counter
	pagesSkippedTotal          prometheus.Counter
	crawlDurationSeconds       prometheus.Histogram
	sweepOutcomesTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmstxt_crawls_total",
				Help: "Total number of crawl runs, labeled by outcome.",
			},
			[]string{"status"},
		)

		pagesCrawledTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "llmstxt_pages_crawled_total",
				Help: "Total number of pages successfully fetched across all crawls.",
			},
		)

		pagesSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "llmstxt_pages_skipped_total",
				Help: "Total number of pages that failed to fetch across all crawls.",
			},
		)

		crawlDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "llmstxt_crawl_duration_seconds",
				Help:    "Histogram of end-to-end crawl-and-generate durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		sweepOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmstxt_sweep_outcomes_total",
				Help: "Total per-site sweep outcomes, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl increments the crawl counter for the given outcome.
func ObserveCrawl(status string) {
	Init()
	crawlsTotal.WithLabelValues(status).Inc()
}

// AddPagesCrawled adds fetched pages to the page counter.
func AddPagesCrawled(n int) {
	Init()
	if n > 0 {
		pagesCrawledTotal.Add(float64(n))
	}
}

// AddPagesSkipped adds failed pages to the skip counter.
func AddPagesSkipped(n int) {
	Init()
	if n > 0 {
		pagesSkippedTotal.Add(float64(n))
	}
}

// ObserveCrawlDuration records one crawl-and-generate duration.
func ObserveCrawlDuration(d time.Duration) {
	Init()
	crawlDurationSeconds.Observe(d.Seconds())
}

// ObserveSweepOutcome increments the sweep outcome counter.
func ObserveSweepOutcome(status string) {
	Init()
	sweepOutcomesTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
