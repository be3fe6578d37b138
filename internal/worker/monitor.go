// Package worker runs the scheduling workflow once or on a fixed interval,
// logging each run's report and queueing its results for publishing.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/ecare-e2e/internal/recorder"
	"github.com/jwalitptl/ecare-e2e/internal/workflow"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/repository"
)

// Runner is the part of workflow.Orchestrator the monitor drives.
type Runner interface {
	RunWithID(ctx context.Context, runID string, rec *recorder.Recorder) (*workflow.State, error)
	Environment() string
	Tenant() string
}

type Monitor struct {
	runner   Runner
	outbox   repository.OutboxRepository
	interval time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewMonitor builds a monitor. outbox and m may be nil.
func NewMonitor(runner Runner, interval time.Duration, outbox repository.OutboxRepository, log *logger.Logger, m *metrics.Metrics) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{
		runner:   runner,
		outbox:   outbox,
		interval: interval,
		logger:   log,
		metrics:  m,
	}
}

// RunOnce executes one workflow run and returns its report together with the
// error that stopped it, if any.
func (m *Monitor) RunOnce(ctx context.Context) (recorder.Report, error) {
	runID := uuid.NewString()
	log := m.logger.WithFields(map[string]interface{}{"run_id": runID})

	sinks := []recorder.Sink{recorder.LogSink(log)}
	if m.metrics != nil {
		sinks = append(sinks, recorder.MetricsSink(m.metrics))
	}
	if m.outbox != nil {
		sinks = append(sinks, recorder.OutboxSink(m.outbox, runID, log))
	}
	rec := recorder.New(sinks...)

	_, runErr := m.runner.RunWithID(ctx, runID, rec)

	report := rec.Report(runID, m.runner.Environment(), m.runner.Tenant())
	report.Log(log)
	if m.outbox != nil {
		if _, err := m.outbox.Add(ctx, recorder.EventRunReported, report); err != nil {
			log.Error(err, "failed to queue run report")
		}
	}
	return report, runErr
}

// Start runs immediately and then every interval until ctx is done. A run
// in progress when ctx ends is cancelled with it.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Starting workflow monitor", "interval", m.interval.String())
	for {
		if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("workflow run did not pass", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Shutting down workflow monitor")
			return
		case <-ticker.C:
		}
	}
}
