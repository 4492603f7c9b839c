// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts finished analyses by outcome ("success", "invalid_input",
	// "rate_limited", "unavailable", "error").
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "pipeline",
		Name:      "analyses_total",
		Help:      "Total analyses by outcome",
	}, []string{"outcome"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docket",
		Subsystem: "pipeline",
		Name:      "phase_duration_seconds",
		Help:      "Duration of each pipeline phase",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"phase"})

	// DegradedTotal counts phases that fell back to a conservative default.
	DegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "pipeline",
		Name:      "degraded_total",
		Help:      "Phases recovered with a conservative default",
	}, []string{"phase"})

	RetrievalFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "retrieval",
		Name:      "claim_failures_total",
		Help:      "Claims skipped because embedding or search failed",
	})

	RetrievedStatutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docket",
		Subsystem: "retrieval",
		Name:      "matches",
		Help:      "Statute matches retrieved per analysis",
		Buckets:   []float64{0, 1, 3, 5, 10, 20},
	})

	RateLimitRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Requests rejected by the rate governor",
	})

	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Reasoning calls by provider, schema and outcome",
	}, []string{"provider", "schema", "outcome"})

	EmbeddingCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docket",
		Subsystem: "embedding",
		Name:      "cache_total",
		Help:      "Embedding cache lookups by result (hit, miss)",
	}, []string{"result"})
)
