package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/recorder"
	"github.com/jwalitptl/ecare-e2e/internal/sandbox"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
)

const (
	testTenant   = "stage_ketamin"
	testUser     = "rose.gomez@jourrapide.com"
	testPassword = "Pass@123"
)

// Thursday 15 October 2026, 10:00 EST.
var testBase = time.Date(2026, time.October, 15, 15, 0, 0, 0, time.UTC)

// movingClock starts at testBase and advances with wall time, so index delays
// elapse while dates stay fixed.
func movingClock() func() time.Time {
	started := time.Now()
	return func() time.Time { return testBase.Add(time.Since(started)) }
}

func newSandbox(t *testing.T, indexDelay time.Duration, now func() time.Time) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.New(sandbox.Config{
		Accounts:   []sandbox.Account{{Username: testUser, Password: testPassword}},
		Tenants:    []string{testTenant},
		JWTSecret:  "workflow-test",
		BcryptCost: bcrypt.MinCost,
		IndexDelay: indexDelay,
		Now:        now,
	})
	require.NoError(t, err)
	return sb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Username = testUser
	cfg.Password = testPassword
	cfg.StepTimeout = 10 * time.Second
	cfg.Lookup.Attempts = 10
	cfg.Lookup.InitialInterval = 20 * time.Millisecond
	cfg.Lookup.MaxInterval = 100 * time.Millisecond
	cfg.Settle.InitialInterval = 20 * time.Millisecond
	cfg.Settle.MaxInterval = 100 * time.Millisecond
	cfg.Settle.Timeout = 3 * time.Second
	return cfg
}

func newOrchestrator(t *testing.T, url string, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(cfg, client.Config{BaseURL: url, Tenant: testTenant, Timeout: 5 * time.Second}, opts...)
	require.NoError(t, err)
	return o
}

func statuses(entries []recorder.Entry) []recorder.Status {
	out := make([]recorder.Status, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	now := movingClock()
	srv := httptest.NewServer(newSandbox(t, 150*time.Millisecond, now).Handler())
	defer srv.Close()

	m := metrics.New("test", prometheus.NewRegistry())
	o := newOrchestrator(t, srv.URL, testConfig(), WithClock(now), WithMetrics(m))
	rec := recorder.New()

	state, err := o.Run(context.Background(), rec)
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, len(StepNames()))
	for i, e := range entries {
		assert.Equal(t, StepNames()[i], e.Name)
		assert.Equal(t, recorder.StatusPass, e.Status, "%s: %s", e.Name, e.Validation)
	}
	assert.Equal(t, 200, entries[0].StatusCode)
	assert.Equal(t, 201, entries[1].StatusCode)
	assert.Equal(t, 201, entries[7].StatusCode)
	assert.Equal(t, 100, rec.Summarize().SuccessRate)

	assert.Equal(t, PhaseAppointmentBooked, state.Phase)
	assert.NotEmpty(t, state.AccessToken)
	require.NotNil(t, state.Provider)
	assert.NotEmpty(t, state.Provider.UUID)
	require.NotNil(t, state.Patient)
	assert.NotEmpty(t, state.Patient.UUID)

	require.NotNil(t, state.Slot)
	assert.Equal(t, "2026-10-19", state.Slot.Date.String())
	assert.Equal(t, time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC), state.Slot.UTCStart)
	assert.Equal(t, time.Date(2026, time.October, 19, 17, 30, 0, 0, time.UTC), state.Slot.UTCEnd)
	assert.Len(t, state.Slots, 2)

	require.NotNil(t, state.Booking)
	assert.NotEmpty(t, state.Booking.UUID)
	assert.Equal(t, state.Provider.UUID, state.Booking.ProviderUUID)
	assert.Equal(t, state.Patient.UUID, state.Booking.PatientUUID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("pass")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.LastSuccessRate))
}

func TestRunSharesOneTrace(t *testing.T) {
	now := movingClock()
	srv := httptest.NewServer(newSandbox(t, 0, now).Handler())
	defer srv.Close()

	spans := tracetest.NewSpanRecorder()
	tp, err := tracing.NewProvider(context.Background(), tracing.Config{ServiceName: "workflow-test"}, sdktrace.WithSpanProcessor(spans))
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	o := newOrchestrator(t, srv.URL, testConfig(), WithClock(now), WithTracerProvider(tp))
	state, err := o.Run(context.Background(), recorder.New())
	require.NoError(t, err)
	require.Len(t, state.TraceID, 32)

	names := map[string]bool{}
	for _, s := range spans.Ended() {
		assert.Equal(t, state.TraceID, s.SpanContext().TraceID().String(), s.Name())
		names[s.Name()] = true
	}
	assert.True(t, names["workflow.run"])
	for _, step := range StepNames() {
		assert.True(t, names[step], step)
	}
	assert.True(t, names["ecare.login"])
}

func TestRunWithPlusAddressedProvider(t *testing.T) {
	now := movingClock()
	srv := httptest.NewServer(newSandbox(t, 0, now).Handler())
	defer srv.Close()

	cfg := testConfig()
	cfg.ProviderMailbox = "qa.scheduling@example.org"
	state, err := newOrchestrator(t, srv.URL, cfg, WithClock(now)).Run(context.Background(), recorder.New())
	require.NoError(t, err)
	assert.Regexp(t, `^qa\.scheduling\+prov\d+n\d+@example\.org$`, state.Provider.Email)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	srv := httptest.NewServer(newSandbox(t, 0, nil).Handler())
	defer srv.Close()

	cfg := testConfig()
	cfg.Password = "not-the-password"
	rec := recorder.New()
	state, err := newOrchestrator(t, srv.URL, cfg).Run(context.Background(), rec)

	require.Error(t, err)
	assert.True(t, apperrors.IsFailure(err))
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, StepLogin, entries[0].Name)
	assert.Equal(t, recorder.StatusFail, entries[0].Status)
	assert.Equal(t, http.StatusUnauthorized, entries[0].StatusCode)
	assert.Contains(t, entries[0].Validation, "expected status 200, got 401")
	assert.Equal(t, PhaseLoggedOut, state.Phase)
	assert.Equal(t, 0, rec.Summarize().SuccessRate)
}

func TestRunRecordsErrorOnNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	rec := recorder.New()
	_, err := newOrchestrator(t, srv.URL, testConfig()).Run(context.Background(), rec)

	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, recorder.StatusError, entries[0].Status)
	assert.Equal(t, http.StatusOK, entries[0].StatusCode)
	assert.Contains(t, entries[0].Response, "maintenance")
}

func TestRunFailsWhenProviderNeverListed(t *testing.T) {
	srv := httptest.NewServer(newSandbox(t, time.Hour, nil).Handler())
	defer srv.Close()

	cfg := testConfig()
	cfg.Lookup.Attempts = 3
	rec := recorder.New()
	state, err := newOrchestrator(t, srv.URL, cfg).Run(context.Background(), rec)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrLookup, apperrors.CodeOf(err))
	assert.Equal(t, []recorder.Status{recorder.StatusPass, recorder.StatusPass, recorder.StatusFail}, statuses(rec.Entries()))
	assert.Equal(t, PhaseProviderCreated, state.Phase)
	assert.Empty(t, state.Provider.UUID)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	srv := httptest.NewServer(newSandbox(t, 0, nil).Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := recorder.New()
	_, err := newOrchestrator(t, srv.URL, testConfig()).Run(ctx, rec)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCancelled, apperrors.CodeOf(err))
	assert.Empty(t, rec.Entries())
}

func TestRunCancelledBetweenSteps(t *testing.T) {
	srv := httptest.NewServer(newSandbox(t, 0, nil).Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := recorder.New(recorder.SinkFunc(func(e recorder.Entry) {
		if e.Name == StepAddProvider {
			cancel()
		}
	}))

	state, err := newOrchestrator(t, srv.URL, testConfig()).Run(ctx, rec)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCancelled, apperrors.CodeOf(err))

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, StepLogin, entries[0].Name)
	assert.Equal(t, StepAddProvider, entries[1].Name)
	assert.Equal(t, PhaseProviderCreated, state.Phase)
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	now := movingClock()
	srv := httptest.NewServer(newSandbox(t, 50*time.Millisecond, now).Handler())
	defer srv.Close()

	o := newOrchestrator(t, srv.URL, testConfig(), WithClock(now))

	const runs = 4
	var wg sync.WaitGroup
	states := make([]*State, runs)
	recs := make([]*recorder.Recorder, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i] = recorder.New()
			states[i], errs[i] = o.Run(context.Background(), recs[i])
		}(i)
	}
	wg.Wait()

	providers := map[string]bool{}
	patients := map[string]bool{}
	runIDs := map[string]bool{}
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, recs[i].Entries(), len(StepNames()))
		providers[states[i].Provider.UUID] = true
		patients[states[i].Patient.UUID] = true
		runIDs[states[i].RunID] = true
	}
	assert.Len(t, providers, runs)
	assert.Len(t, patients, runs)
	assert.Len(t, runIDs, runs)
}

func TestFixedWaitIsCapped(t *testing.T) {
	cfg := testConfig()
	cfg.Settle.Poll = false
	cfg.Settle.FixedWait = time.Hour
	o := newOrchestrator(t, "http://localhost:1", cfg)

	var slept time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}
	require.NoError(t, o.settle(context.Background(), &runContext{state: &State{}}))
	assert.Equal(t, maxFixedWait, slept)
}

func TestSettleGivesUpAndContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Settle.Timeout = 150 * time.Millisecond
	o := newOrchestrator(t, srv.URL, cfg)
	c, err := client.New(o.clientCfg)
	require.NoError(t, err)

	slot, err := targetSlot(testBase, cfg.Window, cfg.slotLength())
	require.NoError(t, err)
	rc := &runContext{
		client: c,
		state:  &State{Provider: &model.ProviderRecord{UUID: "p-1"}, Slot: &slot},
	}

	start := time.Now()
	assert.NoError(t, o.settle(context.Background(), rc))
	assert.Less(t, time.Since(start), 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.settle(ctx, rc), context.Canceled)
}

func TestSettleIsBoundedWhenSlotNeverAppears(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Settle.Timeout = 200 * time.Millisecond
	o := newOrchestrator(t, srv.URL, cfg)
	c, err := client.New(o.clientCfg)
	require.NoError(t, err)

	slot, err := targetSlot(testBase, cfg.Window, cfg.slotLength())
	require.NoError(t, err)
	rc := &runContext{
		client: c,
		state:  &State{Provider: &model.ProviderRecord{UUID: "p-1"}, Slot: &slot},
	}

	start := time.Now()
	assert.NoError(t, o.settle(context.Background(), rc))
	assert.Less(t, time.Since(start), 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, polls, 1)
}

func TestNewRejectsUnboundedSettle(t *testing.T) {
	cfg := testConfig()
	cfg.Settle.Poll = true
	cfg.Settle.Timeout = 0
	_, err := New(cfg, client.Config{BaseURL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle timeout")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(DefaultConfig(), client.Config{BaseURL: "http://localhost"})
	assert.Error(t, err, "missing credentials")

	_, err = New(testConfig(), client.Config{BaseURL: "::"})
	assert.Error(t, err)
}
