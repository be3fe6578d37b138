// Package workflow drives one scheduling scenario end to end: login, create
// and resolve a provider, publish its availability, create and resolve a
// patient, confirm the expected slot is offered and book it. Every step is
// recorded as PASS, FAIL or ERROR and the first non-PASS step ends the run.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/datagen"
	"github.com/jwalitptl/ecare-e2e/internal/recorder"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
)

const tracerName = "github.com/jwalitptl/ecare-e2e/internal/workflow"

// Orchestrator runs the scenario. It holds no per-run state, so one value
// may serve concurrent runs; each Run gets its own client, State and
// recorder.
type Orchestrator struct {
	cfg       Config
	clientCfg client.Config
	gen       *datagen.Generator
	log       *logger.Logger
	metrics   *metrics.Metrics
	tp        trace.TracerProvider
	tracer    trace.Tracer
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithGenerator(g *datagen.Generator) Option {
	return func(o *Orchestrator) { o.gen = g }
}

// WithTracerProvider puts every run in its own trace, shared by the client
// calls it makes.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tp = tp }
}

// WithClock replaces time.Now for slot selection and patient consent dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(cfg Config, clientCfg client.Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow config: %w", err)
	}
	if _, err := client.New(clientCfg); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:       cfg,
		clientCfg: clientCfg,
		log:       logger.Nop(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gen == nil {
		o.gen = datagen.New(datagen.WithClock(o.now))
	}
	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}
	o.tracer = o.tp.Tracer(tracerName)
	if o.clientCfg.TracerProvider == nil {
		o.clientCfg.TracerProvider = o.tp
	}
	if o.clientCfg.Metrics == nil {
		o.clientCfg.Metrics = o.metrics
	}
	if o.clientCfg.Logger == nil {
		o.clientCfg.Logger = o.log
	}
	return o, nil
}

// runContext is what the steps of one run share.
type runContext struct {
	state  *State
	client *client.Client
	rec    *recorder.Recorder
}

// Run executes the scenario, recording every step into rec. It returns the
// final State and, when a step did not pass, the error that stopped the run.
// On cancellation no further call is issued; entries already recorded stay.
func (o *Orchestrator) Run(ctx context.Context, rec *recorder.Recorder) (*State, error) {
	return o.RunWithID(ctx, uuid.NewString(), rec)
}

// RunWithID is Run under a caller-chosen run id, for callers whose sinks
// need the id before the run starts.
func (o *Orchestrator) RunWithID(ctx context.Context, runID string, rec *recorder.Recorder) (*State, error) {
	c, err := client.New(o.clientCfg)
	if err != nil {
		return nil, err
	}
	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("environment", o.cfg.Environment),
		attribute.String("tenant", c.Tenant()),
	))
	defer span.End()

	rc := &runContext{
		state: &State{
			RunID:        runID,
			TraceID:      tracing.TraceID(ctx),
			Phase:        PhaseLoggedOut,
			Availability: o.cfg.Window,
		},
		client: c,
		rec:    rec,
	}
	log := o.log.WithFields(map[string]interface{}{"run_id": runID, "trace_id": rc.state.TraceID})
	log.Info("workflow run started", "environment", o.cfg.Environment, "tenant", c.Tenant())

	runErr := o.runSteps(ctx, rc, log)

	summary := rec.Summarize()
	if o.metrics != nil {
		result := "pass"
		if runErr != nil {
			result = "fail"
		}
		o.metrics.RunsTotal.WithLabelValues(result).Inc()
		o.metrics.LastSuccessRate.Set(float64(summary.SuccessRate))
	}
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
	}
	log.Info("workflow run finished",
		"phase", rc.state.Phase.String(),
		"passed", summary.Passed,
		"total", summary.Total,
	)
	return rc.state, runErr
}

func (o *Orchestrator) runSteps(ctx context.Context, rc *runContext, log *logger.Logger) error {
	for _, st := range o.steps() {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "before", st.name)
			return apperrors.Transport("run cancelled before "+st.name, err)
		}
		if rc.state.Phase != st.requires {
			return fmt.Errorf("step %s requires phase %s, run is in %s", st.name, st.requires, rc.state.Phase)
		}

		if err := o.runStep(ctx, rc, st); err != nil {
			return err
		}
		rc.state.Phase = st.leaves

		if st.after != nil {
			if err := st.after(ctx, rc); err != nil {
				log.Warn("run cancelled", "after", st.name)
				return apperrors.Transport("run cancelled after "+st.name, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, rc *runContext, st step) error {
	if o.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StepTimeout)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, st.name)
	defer span.End()

	start := o.now()
	out, err := st.run(ctx, rc)
	if o.metrics != nil {
		o.metrics.StepDuration.WithLabelValues(st.name).Observe(o.now().Sub(start).Seconds())
	}

	code := 0
	var body interface{}
	if out.resp != nil {
		code = out.resp.StatusCode
		span.SetAttributes(attribute.Int("http.response.status_code", code))
		body = pretty(out.resp.Raw)
	}
	if out.body != nil {
		body = out.body
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	switch {
	case err == nil:
		rc.rec.Record(st.name, recorder.StatusPass, code, body, out.note)
		return nil
	case apperrors.IsFailure(err):
		rc.rec.Record(st.name, recorder.StatusFail, code, body, err.Error())
		return err
	default:
		if body == nil {
			body = err
		}
		rc.rec.Record(st.name, recorder.StatusError, code, body, err.Error())
		return err
	}
}

// pretty re-indents a JSON body for the result log and returns anything else
// unchanged.
func pretty(raw []byte) interface{} {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (o *Orchestrator) Environment() string { return o.cfg.Environment }

func (o *Orchestrator) Tenant() string { return o.clientCfg.Tenant }
