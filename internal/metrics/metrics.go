// Package metrics exposes Prometheus collectors for the indexing service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesCrawledTotal       *prometheus.CounterVec
	contentsEmbeddedTotal   prometheus.Counter
	chunksEmbeddedTotal     *prometheus.CounterVec
	sitemapDiscoveriesTotal *prometheus.CounterVec
	searchRequestsTotal     *prometheus.CounterVec
	searchDurationSeconds   prometheus.Histogram
	loopErrorsTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesCrawledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexd_pages_crawled_total",
				Help: "Total number of crawl attempts, labeled by outcome.",
			},
			[]string{"status"},
		)

		contentsEmbeddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexd_contents_embedded_total",
				Help: "Total number of contents whose embedding set was refreshed.",
			},
		)

		chunksEmbeddedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexd_chunks_embedded_total",
				Help: "Total number of chunk embedding calls, labeled by outcome.",
			},
			[]string{"status"},
		)

		sitemapDiscoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexd_sitemap_discoveries_total",
				Help: "Total number of sitemap discovery runs, labeled by outcome.",
			},
			[]string{"status"},
		)

		searchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexd_search_requests_total",
				Help: "Total number of search requests, labeled by outcome.",
			},
			[]string{"status"},
		)

		searchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexd_search_duration_seconds",
				Help:    "Histogram of end-to-end search latencies.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		loopErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexd_loop_errors_total",
				Help: "Total number of background loop iteration failures, labeled by loop.",
			},
			[]string{"loop"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl increments the crawl attempt counter for the given outcome.
func ObserveCrawl(status string) {
	if pagesCrawledTotal != nil {
		pagesCrawledTotal.WithLabelValues(status).Inc()
	}
}

// ObserveContentEmbedded increments the content embedding counter.
func ObserveContentEmbedded() {
	if contentsEmbeddedTotal != nil {
		contentsEmbeddedTotal.Inc()
	}
}

// ObserveChunk increments the chunk embedding counter for the given outcome.
func ObserveChunk(status string) {
	if chunksEmbeddedTotal != nil {
		chunksEmbeddedTotal.WithLabelValues(status).Inc()
	}
}

// ObserveSitemapDiscovery increments the sitemap discovery counter.
func ObserveSitemapDiscovery(status string) {
	if sitemapDiscoveriesTotal != nil {
		sitemapDiscoveriesTotal.WithLabelValues(status).Inc()
	}
}

// ObserveSearch records one search request with its latency.
func ObserveSearch(status string, duration time.Duration) {
	if searchRequestsTotal != nil {
		searchRequestsTotal.WithLabelValues(status).Inc()
	}
	if searchDurationSeconds != nil {
		searchDurationSeconds.Observe(duration.Seconds())
	}
}

// ObserveLoopError increments the loop failure counter.
func ObserveLoopError(loop string) {
	if loopErrorsTotal != nil {
		loopErrorsTotal.WithLabelValues(loop).Inc()
	}
}
