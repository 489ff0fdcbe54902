package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "searches_total",
			Help:      "Total number of search requests by classified query type",
		},
		[]string{"query_type"},
	)

	PlateauTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "plateau_triggered_total",
			Help:      "Total number of score plateau escalations to the combined namespace",
		},
	)

	EngineFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "engine_fallbacks_total",
			Help:      "Total number of engine fallbacks by kind",
		},
		[]string{"kind"}, // "filter_to_vector" / "classifier_heuristic"
	)

	NamespaceQueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "namespace_query_errors_total",
			Help:      "Total number of per-namespace vector query errors",
		},
		[]string{"namespace"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(PlateauTriggeredTotal)
	prometheus.MustRegister(EngineFallbacksTotal)
	prometheus.MustRegister(NamespaceQueryErrorsTotal)
	retrievalMetricsRegistered = true
}
