// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Registry is private to ghostfetch so tests can gather from it without the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	AlbumFetches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostfetch_album_fetch_total",
			Help: "Album page fetches by collector and result",
		},
		[]string{"collector", "result"},
	)

	ItemFetches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostfetch_item_fetch_total",
			Help: "Item downloads by result, after retries",
		},
		[]string{"result"},
	)

	ItemDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ghostfetch_item_fetch_duration_seconds",
			Help:    "Item download latency including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	Retries = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ghostfetch_retries_total",
			Help: "Retries issued by the retry executor",
		},
	)

	KVCache = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghostfetch_kv_cache_total",
			Help: "Local cache lookups in front of the remote KV store",
		},
		[]string{"result"},
	)
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// RecordAlbum counts one page fetch.
func RecordAlbum(collector string, err error) {
	AlbumFetches.WithLabelValues(collector, result(err)).Inc()
}

// RecordItem counts one finished item download and its latency.
func RecordItem(started time.Time, err error) {
	ItemFetches.WithLabelValues(result(err)).Inc()
	ItemDuration.Observe(time.Since(started).Seconds())
}

func RecordCache(hit bool) {
	if hit {
		KVCache.WithLabelValues(CacheHit).Inc()
		return
	}
	KVCache.WithLabelValues(CacheMiss).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
