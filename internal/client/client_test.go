package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
)

func newClient(t *testing.T, url string, mod ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: url, Tenant: "stage_ketamin"}
	for _, m := range mod {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: ""})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://stage-api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
}

func TestHeadersAndPaths(t *testing.T) {
	var (
		mu  sync.Mutex
		got *http.Request
	)
	last := func() *http.Request {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.Clone(context.Background())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"content":[]},"message":"ok"}`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.ListPatients(context.Background(), 0, 20, "")
	require.NoError(t, err)
	assert.Equal(t, "/api/master/patient", last().URL.Path)
	assert.Equal(t, "page=0&size=20&searchString=", last().URL.RawQuery)
	assert.Equal(t, "stage_ketamin", last().Header.Get("X-TENANT-ID"))
	assert.Equal(t, "application/json, text/plain, */*", last().Header.Get("Accept"))
	assert.Empty(t, last().Header.Get("Authorization"))
	assert.Empty(t, last().Header.Get("Content-Type"))

	c.SetToken("tok")
	_, err = c.CreateProvider(context.Background(), model.CreateProviderRequest{FirstName: "A"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, last().Method)
	assert.Equal(t, "/api/master/provider", last().URL.Path)
	assert.Equal(t, "Bearer tok", last().Header.Get("Authorization"))
	assert.Equal(t, "application/json", last().Header.Get("Content-Type"))

	_, err = c.ListSlots(context.Background(), "p-1", tz.Date{Year: 2026, Month: time.October, Day: 19}, "EST")
	require.NoError(t, err)
	assert.Equal(t, "/api/master/provider/p-1/slots", last().URL.Path)
	assert.Equal(t, "date=2026-10-19&timezone=EST", last().URL.RawQuery)

	_, err = c.GetAvailability(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "/api/master/provider/availability-setting/p-1", last().URL.Path)
}

func TestResponseEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Provider created successfully","code":"OK"}`))
	}))
	defer srv.Close()

	resp, err := newClient(t, srv.URL).CreateProvider(context.Background(), model.CreateProviderRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Provider created successfully", resp.Message)
	assert.Equal(t, "OK", resp.Code)

	var v map[string]interface{}
	err = resp.Decode(&v)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestDecodeShapeMismatchIsValidation(t *testing.T) {
	r := &Response{Data: json.RawMessage(`"a string"`)}
	var page model.Page[model.ProviderSummary]
	err := r.Decode(&page)
	assert.True(t, apperrors.IsFailure(err))
}

func TestNonJSONBodyIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	resp, err := newClient(t, srv.URL).Login(context.Background(), "u", "p")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(resp.Raw), "bad gateway")
}

func TestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })
	_, err := c.ListProviders(context.Background(), 0, 20)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTimeout, apperrors.CodeOf(err))
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, srv.URL).ListProviders(ctx, 0, 20)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCancelled, apperrors.CodeOf(err))
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).ListProviders(context.Background(), 0, 20)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTransport, apperrors.CodeOf(err))
}

func TestMetricsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
	}))
	defer srv.Close()

	m := metrics.New("test", prometheus.NewRegistry())
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Metrics = m })
	_, err := c.Login(context.Background(), "u", "p")
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "u", "p")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APICalls.WithLabelValues(OpLogin, "4xx")))
}

func TestRateLimiterThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) {
		cfg.RateLimit = 20
		cfg.RateBurst = 1
	})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.ListProviders(context.Background(), 0, 20)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
