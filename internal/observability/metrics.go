package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for conversion and evaluation runs.
//
// The metrics are registered on a private registry rather than the global
// one, because the CLI is a batch job: the registry is written to a
// Prometheus textfile when the run ends instead of being scraped.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RowConverted("passages")
//	defer metrics.WriteTextfile("/var/lib/node_exporter/nqbench.prom")
type Metrics struct {
	registry *prometheus.Registry

	// RowsConverted counts source rows written to shards.
	// Labels: collection (documents|passages)
	RowsConverted *prometheus.CounterVec

	// ShardsOpened counts shard files created.
	// Labels: collection
	ShardsOpened *prometheus.CounterVec

	// QuestionsEvaluated counts questions scored.
	// Labels: retriever
	QuestionsEvaluated *prometheus.CounterVec

	// Hits counts questions whose gold answer was retrieved.
	// Labels: retriever
	Hits *prometheus.CounterVec

	// LookupMisses counts result identifiers absent from the lookup table.
	// Labels: retriever
	LookupMisses *prometheus.CounterVec

	// Recall records the final recall of each retriever.
	// Labels: retriever
	Recall *prometheus.GaugeVec

	// SearchRequests counts search calls.
	// Labels: kind (bluge|http|sqlite), status (success|error)
	SearchRequests *prometheus.CounterVec

	// SearchDuration measures search latency in seconds.
	// Labels: kind
	// Buckets: 1ms, 5ms, 10ms, 50ms, 100ms, 500ms, 1s, 5s
	SearchDuration *prometheus.HistogramVec
}

// NewMetrics creates the metric set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RowsConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_rows_converted_total",
				Help: "Total number of source rows written to collection shards",
			},
			[]string{"collection"},
		),

		ShardsOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_shards_opened_total",
				Help: "Total number of collection shard files created",
			},
			[]string{"collection"},
		),

		QuestionsEvaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_questions_evaluated_total",
				Help: "Total number of questions scored by retriever",
			},
			[]string{"retriever"},
		),

		Hits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_retrieval_hits_total",
				Help: "Total number of questions whose gold answer appeared in the top-k results",
			},
			[]string{"retriever"},
		),

		LookupMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_lookup_misses_total",
				Help: "Total number of result identifiers missing from the lookup table",
			},
			[]string{"retriever"},
		),

		Recall: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nqbench_recall",
				Help: "Recall@k of the last evaluation by retriever",
			},
			[]string{"retriever"},
		),

		SearchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nqbench_search_requests_total",
				Help: "Total number of search requests by index kind and status",
			},
			[]string{"kind", "status"},
		),

		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nqbench_search_duration_seconds",
				Help:    "Duration of search requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RowConverted records one converted row. Safe on a nil receiver.
func (m *Metrics) RowConverted(collection string) {
	if m == nil {
		return
	}
	m.RowsConverted.WithLabelValues(collection).Inc()
}

// ShardOpened records one new shard file. Safe on a nil receiver.
func (m *Metrics) ShardOpened(collection string) {
	if m == nil {
		return
	}
	m.ShardsOpened.WithLabelValues(collection).Inc()
}

// QuestionScored records the outcome of one question. Safe on a nil receiver.
func (m *Metrics) QuestionScored(retriever string, hit bool) {
	if m == nil {
		return
	}
	m.QuestionsEvaluated.WithLabelValues(retriever).Inc()
	if hit {
		m.Hits.WithLabelValues(retriever).Inc()
	}
}

// LookupMissed records a result identifier absent from the lookup table.
func (m *Metrics) LookupMissed(retriever string) {
	if m == nil {
		return
	}
	m.LookupMisses.WithLabelValues(retriever).Inc()
}

// SetRecall records the final recall of a retriever.
func (m *Metrics) SetRecall(retriever string, recall float64) {
	if m == nil {
		return
	}
	m.Recall.WithLabelValues(retriever).Set(recall)
}

// RecordSearch records one search call.
//
// Example:
//
//	start := time.Now()
//	hits, err := searcher.Search(ctx, q, k)
//	metrics.RecordSearch("bluge", err, time.Since(start).Seconds())
func (m *Metrics) RecordSearch(kind string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SearchRequests.WithLabelValues(kind, status).Inc()
	m.SearchDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// WriteTextfile writes every metric in the Prometheus text format to path,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
