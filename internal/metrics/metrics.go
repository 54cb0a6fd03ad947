// Package metrics exposes Prometheus counters for ingestion, embedding, and search.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cookcut"

// Collector owns a registry and the instruments recorded into it.
type Collector struct {
	registry *prometheus.Registry

	recipes         *prometheus.CounterVec
	flushes         *prometheus.CounterVec
	recordsUpserted prometheus.Counter
	embedRequests   *prometheus.CounterVec
	embedRetries    prometheus.Counter
	embedCache      *prometheus.CounterVec
	embedLatency    prometheus.Histogram
	searches        *prometheus.CounterVec
	searchLatency   prometheus.Histogram
}

// New creates a collector with its own registry, including Go runtime metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		recipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_total",
			Help:      "Recipes handled by the ingest pipeline, by outcome.",
		}, []string{"outcome"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_flushes_total",
			Help:      "Batch flushes to the vector store, by status.",
		}, []string{"status"}),
		recordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Vector records written to the store.",
		}),
		embedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding requests after retries, by status.",
		}, []string{"status"}),
		embedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_retries_total",
			Help:      "Embedding attempts that were retried.",
		}),
		embedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups, by result.",
		}, []string{"result"}),
		embedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_seconds",
			Help:      "Latency of embedding requests including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests, by mode and status.",
		}, []string{"mode", "status"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_seconds",
			Help:      "Search latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.recipes, c.flushes, c.recordsUpserted,
		c.embedRequests, c.embedRetries, c.embedCache, c.embedLatency,
		c.searches, c.searchLatency,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecipeProcessed counts a recipe that was embedded and flushed.
func (c *Collector) RecipeProcessed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.recipes.WithLabelValues("processed").Add(float64(n))
}

// RecipeFailed counts a recipe skipped because of a normalization or embedding error.
func (c *Collector) RecipeFailed() {
	if c == nil {
		return
	}
	c.recipes.WithLabelValues("failed").Inc()
}

// Flush records one batch flush and the records it wrote.
func (c *Collector) Flush(ok bool, records int) {
	if c == nil {
		return
	}
	c.flushes.WithLabelValues(status(ok)).Inc()
	if records > 0 {
		c.recordsUpserted.Add(float64(records))
	}
}

// EmbedRequest records the outcome of one retried embedding request.
func (c *Collector) EmbedRequest(ok bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.embedRequests.WithLabelValues(status(ok)).Inc()
	c.embedLatency.Observe(elapsed.Seconds())
}

// EmbedRetry counts one retry.
func (c *Collector) EmbedRetry() {
	if c == nil {
		return
	}
	c.embedRetries.Inc()
}

// EmbedCache records cache hits and misses.
func (c *Collector) EmbedCache(hits, misses int) {
	if c == nil {
		return
	}
	if hits > 0 {
		c.embedCache.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		c.embedCache.WithLabelValues("miss").Add(float64(misses))
	}
}

// Search records a search request.
func (c *Collector) Search(mode string, ok bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.searches.WithLabelValues(mode, status(ok)).Inc()
	c.searchLatency.Observe(elapsed.Seconds())
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
