// Package metrics exposes Prometheus instrumentation for the analysis
// engine and its collaborators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one engine instance.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec // Completed analysis requests by mode_used
	RequestSeconds     prometheus.Histogram   // End-to-end analysis latency
	DowngradesTotal    prometheus.Counter     // Hybrid requests downgraded to fast
	SignalFailures     *prometheus.CounterVec // Signal unavailability by signal name
	NarrativeRetries   prometheus.Counter     // Narrative calls retried after transient failure
	NarrativeFallbacks prometheus.Counter     // Reports that fell back to the template summary
	IndexRefreshes     prometheus.Counter     // Semantic index refresh operations
	IndexVectors       prometheus.Gauge       // Vectors currently held by the semantic index
}

// NewMetrics creates and registers the collectors for an engine instance.
// The registerer parameter allows flexible registration (global registry,
// test registry); instanceName distinguishes multiple engines via ConstLabels.
func NewMetrics(reg prometheus.Registerer, instanceName string) *Metrics {
	constLabels := prometheus.Labels{"instance": instanceName}

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rca_requests_total",
		Help:        "Completed analysis requests by reported mode",
		ConstLabels: constLabels,
	}, []string{"mode"})

	requestSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "rca_request_duration_seconds",
		Help:        "End-to-end analysis request latency",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	downgradesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rca_mode_downgrades_total",
		Help:        "Hybrid requests downgraded to fast mode",
		ConstLabels: constLabels,
	})

	signalFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "rca_signal_failures_total",
		Help:        "Scoring signals declared unavailable, by signal",
		ConstLabels: constLabels,
	}, []string{"signal"})

	narrativeRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rca_narrative_retries_total",
		Help:        "Narrative generation calls retried after a transient failure",
		ConstLabels: constLabels,
	})

	narrativeFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rca_narrative_fallbacks_total",
		Help:        "Reports composed from the deterministic template fallback",
		ConstLabels: constLabels,
	})

	indexRefreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "rca_index_refreshes_total",
		Help:        "Semantic index refresh operations",
		ConstLabels: constLabels,
	})

	indexVectors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "rca_index_vectors",
		Help:        "Vectors currently held by the semantic index",
		ConstLabels: constLabels,
	})

	reg.MustRegister(requestsTotal)
	reg.MustRegister(requestSeconds)
	reg.MustRegister(downgradesTotal)
	reg.MustRegister(signalFailures)
	reg.MustRegister(narrativeRetries)
	reg.MustRegister(narrativeFallbacks)
	reg.MustRegister(indexRefreshes)
	reg.MustRegister(indexVectors)

	return &Metrics{
		RequestsTotal:      requestsTotal,
		RequestSeconds:     requestSeconds,
		DowngradesTotal:    downgradesTotal,
		SignalFailures:     signalFailures,
		NarrativeRetries:   narrativeRetries,
		NarrativeFallbacks: narrativeFallbacks,
		IndexRefreshes:     indexRefreshes,
		IndexVectors:       indexVectors,
	}
}
