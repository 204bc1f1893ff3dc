// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filmsScrapedTotal            *prometheus.CounterVec
	fieldExtractionMissesTotal   *prometheus.CounterVec
	syncRunsTotal                *prometheus.CounterVec
	entriesSkippedTotal          *prometheus.CounterVec
	storeWritesTotal             *prometheus.CounterVec
	upstreamFetchDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		filmsScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "top250_films_scraped_total",
				Help: "Detail pages scraped, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		fieldExtractionMissesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "top250_field_extraction_misses_total",
				Help: "Fields that came back absent during extraction, by field.",
			},
			[]string{"field"},
		)
		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "top250_sync_runs_total",
				Help: "Catalog sync passes, labeled by result.",
			},
			[]string{"result"},
		)
		entriesSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "top250_entries_skipped_total",
				Help: "Catalog entries dropped from a pass, by reason.",
			},
			[]string{"reason"},
		)
		storeWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "top250_store_writes_total",
				Help: "Documents written to the store, by collection.",
			},
			[]string{"collection"},
		)
		upstreamFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "top250_upstream_fetch_duration_seconds",
				Help:    "Latency of upstream page fetches, by page kind.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)
	})
}

// FilmScraped records one detail-page scrape outcome.
func FilmScraped(outcome string) {
	if filmsScrapedTotal != nil {
		filmsScrapedTotal.WithLabelValues(outcome).Inc()
	}
}

// FieldMiss records one absent field during extraction.
func FieldMiss(field string) {
	if fieldExtractionMissesTotal != nil {
		fieldExtractionMissesTotal.WithLabelValues(field).Inc()
	}
}

// SyncRun records the result of one sync pass.
func SyncRun(result string) {
	if syncRunsTotal != nil {
		syncRunsTotal.WithLabelValues(result).Inc()
	}
}

// EntrySkipped records one entry dropped from a pass.
func EntrySkipped(reason string) {
	if entriesSkippedTotal != nil {
		entriesSkippedTotal.WithLabelValues(reason).Inc()
	}
}

// StoreWrite records one document write.
func StoreWrite(collection string) {
	if storeWritesTotal != nil {
		storeWritesTotal.WithLabelValues(collection).Inc()
	}
}

// ObserveFetch records the latency of one upstream fetch.
func ObserveFetch(kind string, d time.Duration) {
	if upstreamFetchDurationSeconds != nil {
		upstreamFetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}
