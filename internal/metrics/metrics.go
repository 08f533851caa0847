package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the transformation pipeline and the remote config resolver
var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_records_total",
			Help: "Total number of records processed, by record result",
		},
		[]string{"result"},
	)

	EventsByStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_events_processing_status_total",
			Help: "Total number of transformed events, by processing status",
		},
		[]string{"status"},
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gap_batch_duration_seconds",
			Help:    "Duration of batch processing",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_cache_lookups_total",
			Help: "Total number of cache lookups, by cache and outcome (hit, negative_hit, miss)",
		},
		[]string{"cache", "outcome"},
	)

	CacheFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_cache_fetch_errors_total",
			Help: "Total number of failed store fetches behind a cache",
		},
		[]string{"cache"},
	)

	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_assignments_total",
			Help: "Total number of remote config resolutions, by value origin and whether the assignment was new",
		},
		[]string{"origin", "assignment"},
	)

	SinkEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_sink_events_total",
			Help: "Total number of canonical events handed to the event store, by outcome (stored, rejected, retried)",
		},
		[]string{"outcome"},
	)

	QueueReceivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_queue_receives_total",
			Help: "Total number of queue receive calls, by outcome (messages, empty, error)",
		},
		[]string{"outcome"},
	)

	DeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gap_dead_lettered_total",
			Help: "Total number of queue messages forwarded to the dead-letter queue, by stage",
		},
		[]string{"stage"},
	)

	FixedOverridesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gap_fixed_overrides_total",
			Help: "Total number of remote configs resolved to an audience fixed override",
		},
	)

	ResolveFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gap_resolve_fallbacks_total",
			Help: "Total number of remote configs that fell back to their reference value after a store error",
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(EventsByStatusTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(CacheFetchErrorsTotal)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(ResolveFallbacksTotal)
	prometheus.MustRegister(SinkEventsTotal)
	prometheus.MustRegister(DeadLetteredTotal)
	prometheus.MustRegister(FixedOverridesTotal)
	prometheus.MustRegister(QueueReceivesTotal)
}
