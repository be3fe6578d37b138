package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all runner metrics
type Metrics struct {
	// Step outcomes
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec

	// API calls issued by the client
	APICalls       *prometheus.CounterVec
	APICallLatency *prometheus.HistogramVec

	// Lookup and settle polling
	LookupAttempts *prometheus.CounterVec
	SettleWait     prometheus.Histogram

	// Whole runs
	RunsTotal       *prometheus.CounterVec
	LastSuccessRate prometheus.Gauge

	// Result publishing
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
}

// New creates the runner metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_steps_total",
			Help:      "Total number of recorded workflow steps by outcome",
		}, []string{"step", "status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Time spent executing a workflow step",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Total number of API calls by operation and status code class",
		}, []string{"operation", "code"}),
		APICallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_call_duration_seconds",
			Help:      "Duration of API calls",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		LookupAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_attempts_total",
			Help:      "Total number of lookup-by-attributes listing scans",
		}, []string{"resource"}),
		SettleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settle_wait_seconds",
			Help:      "Time spent waiting for availability to become queryable",
			Buckets:   []float64{.1, .5, 1, 2, 3, 5, 10, 20, 30},
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs by result",
		}, []string{"result"}),
		LastSuccessRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_last_success_rate_percent",
			Help:      "Success rate of the most recent run",
		}),
		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "The total number of published result events",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "The total number of result events that could not be published",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent publishing one batch of result events",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.StepsTotal,
			m.StepDuration,
			m.APICalls,
			m.APICallLatency,
			m.LookupAttempts,
			m.SettleWait,
			m.RunsTotal,
			m.LastSuccessRate,
			m.OutboxEventsProcessed,
			m.OutboxEventsFailed,
			m.OutboxProcessingLatency,
		)
	}
	return m
}
