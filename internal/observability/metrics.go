// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderCalls     *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	ProviderCacheHits *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentBatches  prometheus.Counter
	EnrichmentDuration prometheus.Histogram
	RecordsResolved    prometheus.Counter
	RecordsUnresolved  prometheus.Counter

	// Ingestion metrics
	WebhookRequests prometheus.Counter
	TradesIngested  prometheus.Counter
	TradesSkipped   *prometheus.CounterVec

	// Broadcast metrics
	BroadcastClients  prometheus.Gauge
	BroadcastMessages prometheus.Counter

	// Snapshot metrics
	SnapshotRuns   prometheus.Counter
	SnapshotErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "kolwatch"
	}

	return &Metrics{
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of outbound provider API calls",
		}, []string{"provider"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Total number of provider failures by kind (status, transport)",
		}, []string{"provider", "kind"}),
		ProviderCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_hits_total",
			Help:      "Total number of provider cache hits (negative entries included)",
		}, []string{"provider"}),

		EnrichmentBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "batches_total",
			Help:      "Total number of enrichment batches processed",
		}),
		EnrichmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "batch_duration_seconds",
			Help:      "Enrichment batch duration across all tiers",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RecordsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "records_resolved_total",
			Help:      "Total number of records that left the chain with a known symbol",
		}),
		RecordsUnresolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "records_unresolved_total",
			Help:      "Total number of records still unknown after the last tier",
		}),

		WebhookRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "webhook_requests_total",
			Help:      "Total number of webhook deliveries received",
		}),
		TradesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_ingested_total",
			Help:      "Total number of trade records parsed from webhooks",
		}),
		TradesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_skipped_total",
			Help:      "Total number of webhook transfers skipped by reason",
		}, []string{"reason"}),

		BroadcastClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "clients",
			Help:      "Number of connected WebSocket clients",
		}),
		BroadcastMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_total",
			Help:      "Total number of messages fanned out to clients",
		}),

		SnapshotRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "runs_total",
			Help:      "Total number of trending snapshot runs",
		}),
		SnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "errors_total",
			Help:      "Total number of failed trending snapshot runs",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
