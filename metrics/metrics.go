// Package metrics holds the Prometheus collectors of the tile engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridmap_tile_cache_hits_total",
		Help: "Total tile cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridmap_tile_cache_misses_total",
		Help: "Total tile cache misses",
	})
	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridmap_tile_cache_evictions_total",
		Help: "Total tiles evicted from the cache",
	})
	FetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmap_tile_fetches_total",
		Help: "Total tile fetches by origin (store, remote) and result (ok, error)",
	}, []string{"origin", "result"})
	FetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridmap_tile_remote_fetch_duration_ms",
		Help:    "Remote tile fetch duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	TasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmap_worker_tasks_total",
		Help: "Worker tasks by type and outcome (queued, collapsed, dropped, done, failed)",
	}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(FetchesTotal)
	prometheus.MustRegister(FetchDurationMs)
	prometheus.MustRegister(TasksTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
