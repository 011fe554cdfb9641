package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	AddressesCreated prometheus.Counter
	AddressesUpdated prometheus.Counter
	AddressesDeleted prometheus.Counter

	LookupsGranted prometheus.Counter
	LookupsDenied  *prometheus.CounterVec

	SyncBatches    *prometheus.CounterVec
	SyncItems      *prometheus.CounterVec
	SyncRetries    prometheus.Counter
	SyncQueueDepth *prometheus.GaugeVec

	LedgerRequestDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		AddressesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addresshub_addresses_created_total",
			Help: "Total number of addresses created",
		}),
		AddressesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addresshub_addresses_updated_total",
			Help: "Total number of address updates",
		}),
		AddressesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addresshub_addresses_deleted_total",
			Help: "Total number of addresses soft-deleted",
		}),
		LookupsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addresshub_lookups_granted_total",
			Help: "Total number of granted organization lookups",
		}),
		LookupsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "addresshub_lookups_denied_total",
			Help: "Total number of denied organization lookups by reason",
		}, []string{"reason"}),
		SyncBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "addresshub_sync_batches_total",
			Help: "Total number of sync batches by kind and outcome",
		}, []string{"kind", "outcome"}),
		SyncItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "addresshub_sync_items_total",
			Help: "Total number of sync batch items by result",
		}, []string{"result"}),
		SyncRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addresshub_sync_retries_total",
			Help: "Total number of whole-batch sync retry attempts",
		}),
		SyncQueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "addresshub_sync_queue_depth",
			Help: "Number of addresses waiting in each sync queue",
		}, []string{"queue"}),
		LedgerRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "addresshub_ledger_request_duration_seconds",
			Help:    "Latency of ledger node requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
