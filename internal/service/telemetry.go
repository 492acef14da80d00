package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lorekeeper.service")

var (
	compileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_compile_total",
		Help: "Utterances compiled, by resulting knowledge type and outcome",
	}, []string{"knowledge_type", "result"})

	compileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorekeeper_compile_duration_seconds",
		Help:    "End-to-end compile latency",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	downgradeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_downgrade_total",
		Help: "Epistemic downgrades applied, by trigger",
	}, []string{"trigger"})

	collaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_collaborator_failures_total",
		Help: "Swallowed collaborator failures, by collaborator",
	}, []string{"collaborator"})

	affectedEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorekeeper_affected_entries",
		Help:    "Size of the affected set per dependency traversal",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000},
	})

	deferredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lorekeeper_deferred_entries_total",
		Help: "Entries deferred to the background recompile worker",
	})

	recompileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_recompile_total",
		Help: "Incremental recompilations, by outcome",
	}, []string{"result"})

	invariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_invariant_violations_total",
		Help: "Invariant violations found by the audit layer",
	}, []string{"invariant", "severity"})

	promotionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeeper_promotion_total",
		Help: "Promotion attempts, by outcome",
	}, []string{"result"})
)

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
