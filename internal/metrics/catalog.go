package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog metrics
	providersConfigured = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamdex_providers_configured",
		Help: "Number of valid provider records in the configuration",
	})

	providerRecordsSkipped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamdex_provider_records_skipped",
		Help: "Number of invalid provider records skipped on last load",
	})

	catalogItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamdex_catalog_items",
		Help: "Catalog items per provider by kind (last refresh)",
	}, []string{"provider", "kind"}) // kind=channels|movies|series|groups

	// Refresh metrics
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamdex_refresh_total",
		Help: "Provider refresh attempts by outcome",
	}, []string{"provider", "outcome"}) // outcome=success|failure

	refreshDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamdex_refresh_duration_seconds",
		Help:    "Time spent rebuilding one provider catalog",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamdex_auth_failures_total",
		Help: "Xtream authentication failures per provider",
	}, []string{"provider"})

	// Stream intake metrics
	skippedStreamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamdex_skipped_streams_total",
		Help: "Streams dropped during catalog assembly by reason",
	}, []string{"provider", "reason"}) // reason=empty_name|adult_hidden

	cacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamdex_cache_results_total",
		Help: "Disk cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	// Favorites metrics
	favoritesEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamdex_favorites_entries",
		Help: "Number of entries in the favorites list",
	})
)

func RecordProviderCounts(configured, skipped int) {
	providersConfigured.Set(float64(configured))
	providerRecordsSkipped.Set(float64(skipped))
}

func RecordCatalogCounts(provider string, channels, movies, series, groups int) {
	catalogItems.WithLabelValues(provider, "channels").Set(float64(channels))
	catalogItems.WithLabelValues(provider, "movies").Set(float64(movies))
	catalogItems.WithLabelValues(provider, "series").Set(float64(series))
	catalogItems.WithLabelValues(provider, "groups").Set(float64(groups))
}

func IncRefresh(provider, outcome string) {
	refreshTotal.WithLabelValues(provider, outcome).Inc()
}

func ObserveRefreshDuration(provider string, seconds float64) {
	refreshDurationSeconds.WithLabelValues(provider).Observe(seconds)
}

func IncAuthFailure(provider string) { authFailuresTotal.WithLabelValues(provider).Inc() }

func IncSkippedStream(provider, reason string) {
	skippedStreamsTotal.WithLabelValues(provider, reason).Inc()
}

func IncCacheResult(result string) { cacheResultsTotal.WithLabelValues(result).Inc() }

func RecordFavoritesCount(n int) { favoritesEntries.Set(float64(n)) }
