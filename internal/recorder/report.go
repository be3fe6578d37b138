package recorder

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/repository"
)

// Event types queued for publishing.
const (
	EventStepRecorded = "workflow.step.recorded"
	EventRunReported  = "workflow.run.reported"
)

// Report is the read-only outcome of a run handed to report generators.
type Report struct {
	RunID       string    `json:"runId"`
	Environment string    `json:"environment"`
	Tenant      string    `json:"tenant"`
	ExecutedAt  time.Time `json:"executedAt"`
	Summary     Summary   `json:"summary"`
	Results     []Entry   `json:"results"`
}

// Report snapshots the recorder.
func (r *Recorder) Report(runID, environment, tenant string) Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make([]Entry, len(r.entries))
	copy(results, r.entries)
	return Report{
		RunID:       runID,
		Environment: environment,
		Tenant:      tenant,
		ExecutedAt:  r.now().UTC(),
		Summary:     summarize(results),
		Results:     results,
	}
}

// responsePreview is how much of a non-passing response the summary log keeps.
const responsePreview = 150

// Log writes the summary block and one line per entry.
func (rep Report) Log(log *logger.Logger) {
	log.Info("test execution summary",
		"run_id", rep.RunID,
		"environment", rep.Environment,
		"tenant", rep.Tenant,
		"execution_time", rep.ExecutedAt.Format(time.RFC3339),
		"total", rep.Summary.Total,
		"passed", rep.Summary.Passed,
		"failed", rep.Summary.Failed,
		"errors", rep.Summary.Errors,
		"success_rate", rep.Summary.SuccessRate,
	)
	for i, e := range rep.Results {
		fields := []interface{}{
			"index", i + 1,
			"status", string(e.Status),
			"status_code", e.StatusCode,
			"validation", e.Validation,
			"time", e.Timestamp.Format(time.RFC3339),
		}
		if e.Status != StatusPass {
			fields = append(fields, "response", truncate(e.Response, responsePreview))
		}
		log.Info(e.Name, fields...)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// LogSink logs each entry as it is recorded.
func LogSink(log *logger.Logger) Sink {
	return SinkFunc(func(e Entry) {
		switch e.Status {
		case StatusPass:
			log.Info("✓ "+e.Name+": PASSED", "status_code", e.StatusCode)
		case StatusFail:
			log.Warn("✗ "+e.Name+": FAILED", "status_code", e.StatusCode, "validation", e.Validation)
		default:
			log.Warn("⚠ "+e.Name+": ERROR", "validation", e.Validation)
		}
	})
}

// MetricsSink counts entries by step and status.
func MetricsSink(m *metrics.Metrics) Sink {
	return SinkFunc(func(e Entry) {
		m.StepsTotal.WithLabelValues(e.Name, string(e.Status)).Inc()
	})
}

// StepEvent is the payload of EventStepRecorded.
type StepEvent struct {
	RunID string `json:"runId"`
	Entry
}

// OutboxSink queues every entry of run runID for publishing. Queueing
// failures are logged and never affect the run.
func OutboxSink(outbox repository.OutboxRepository, runID string, log *logger.Logger) Sink {
	return SinkFunc(func(e Entry) {
		if _, err := outbox.Add(context.Background(), EventStepRecorded, StepEvent{RunID: runID, Entry: e}); err != nil {
			log.Error(err, "failed to queue step result", "run_id", runID, "step", e.Name)
		}
	})
}
