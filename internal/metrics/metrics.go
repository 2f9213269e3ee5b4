package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Simulation counters and histograms, partitioned by execution mode where a
// run can be sequential or parallel.

var (
	// Runner
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "runner",
		Name:      "runs_total",
		Help:      "Total simulation runs completed",
	}, []string{"mode"})

	RunErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "runner",
		Name:      "run_errors_total",
		Help:      "Total simulation runs that failed",
	}, []string{"mode"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "allensim",
		Subsystem: "runner",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of one simulation run",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"mode"})

	TrialsSimulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "runner",
		Name:      "trials_simulated_total",
		Help:      "Total trials simulated and classified",
	}, []string{"mode"})

	NonTerminatingTrials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "runner",
		Name:      "non_terminating_trials_total",
		Help:      "Total trials aborted after exhausting the tick budget",
	})

	// Batch runner
	BatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "batch",
		Name:      "completed_total",
		Help:      "Total batches completed by the batch runner",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "allensim",
		Subsystem: "batch",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of one batch",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	})

	// Result cache
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total result cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total result cache misses (computations triggered)",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "allensim",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Current number of result cache entries",
	})

	// Uniformity tester
	UniformityTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "stats",
		Name:      "uniformity_tests_total",
		Help:      "Total uniformity test evaluations",
	}, []string{"outcome"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "allensim",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
