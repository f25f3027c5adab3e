package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelOutcome   = "outcome"
	LabelOperation = "op"
	LabelReason    = "reason"
)

// Engine metrics
var (
	// PassesCount counts prune-and-evaluate passes by verdict
	PassesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "engine",
		Name:      "passes_total",
		Help:      "Total number of window evaluation passes, by fulfillment outcome",
	}, []string{LabelOutcome})

	SamplesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "engine",
		Name:      "samples_pruned_total",
		Help:      "Total number of samples dropped by sub-threshold pruning",
	})

	SamplesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "engine",
		Name:      "samples_collected_total",
		Help:      "Total number of samples cleared by reorder-tolerance collection",
	})

	// WindowSize observes the window length after each pass
	WindowSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "windowkeeper",
		Subsystem: "engine",
		Name:      "window_samples",
		Help:      "Number of samples retained in a condition window after evaluation",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "state",
		Name:      "errors_total",
		Help:      "Total number of failed state store operations",
	}, []string{LabelOperation})
)

// Collector metrics
var (
	ObservationsCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "collector",
		Name:      "observations_total",
		Help:      "Total number of observations read",
	})

	// CheckErrors counts observations a checker could not evaluate
	CheckErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "windowkeeper",
		Subsystem: "collector",
		Name:      "check_errors_total",
		Help:      "Total number of observations a checker rejected",
	}, []string{LabelReason})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "windowkeeper",
		Subsystem: "dispatcher",
		Name:      "batch_duration_seconds",
		Help:      "Time to persist and emit one batch of rule snapshots",
		Buckets:   prometheus.DefBuckets,
	})
)
