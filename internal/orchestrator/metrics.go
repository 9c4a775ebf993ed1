package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// passMetrics instruments the indexing pipeline. Each orchestrator
// registers against the registerer it was configured with, so tests can
// run isolated registries.
type passMetrics struct {
	passes        *prometheus.CounterVec
	filesChanged  prometheus.Counter
	filesDeleted  prometheus.Counter
	chunksEmitted prometheus.Counter
	chunkFailures prometheus.Counter
	transmitFails prometheus.Counter
	passDuration  prometheus.Histogram
}

func newPassMetrics(reg prometheus.Registerer) *passMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &passMetrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "driftdex_index_passes_total",
			Help: "Indexing passes by result (success, error, dropped).",
		}, []string{"result"}),
		filesChanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "driftdex_files_changed_total",
			Help: "Files reported added or modified by the tree diff.",
		}),
		filesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "driftdex_files_deleted_total",
			Help: "Files reported deleted by the tree diff.",
		}),
		chunksEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "driftdex_chunks_emitted_total",
			Help: "Chunks handed to the transmission callbacks.",
		}),
		chunkFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "driftdex_chunk_failures_total",
			Help: "Per-file chunking failures (file skipped, pass continued).",
		}),
		transmitFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "driftdex_transmit_failures_total",
			Help: "Chunks-ready callback invocations that returned an error.",
		}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "driftdex_pass_duration_seconds",
			Help:    "Wall-clock duration of completed indexing passes.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}
