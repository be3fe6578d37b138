// Package client issues the scheduling API calls a workflow run is made of.
// It owns the wire details (headers, paths, envelopes) and reports transport
// problems as errors; judging status codes and messages is left to callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
)

const (
	DefaultTimeout = 30 * time.Second

	headerTenant = "X-TENANT-ID"
	acceptHeader = "application/json, text/plain, */*"
	apiPrefix    = "/api/master"

	tracerName = "github.com/jwalitptl/ecare-e2e/internal/client"
)

// Operation names, used in errors and metrics.
const (
	OpLogin           = "login"
	OpLogout          = "logout"
	OpCreateProvider  = "create_provider"
	OpListProviders   = "list_providers"
	OpSetAvailability = "set_availability"
	OpGetAvailability = "get_availability"
	OpCreatePatient   = "create_patient"
	OpListPatients    = "list_patients"
	OpListSlots       = "list_slots"
	OpBookAppointment = "book_appointment"
)

type Config struct {
	BaseURL string
	Tenant  string
	// Timeout caps every call. Zero means DefaultTimeout.
	Timeout time.Duration
	// RateLimit is in requests per second. Zero disables throttling.
	RateLimit float64
	RateBurst int
	// Transport is wrapped with tracing. Nil means http.DefaultTransport.
	Transport http.RoundTripper
	// TracerProvider and Propagator default to the otel globals.
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// Response is one API answer: the status code, the envelope fields and the
// raw body.
type Response struct {
	StatusCode int
	Message    string
	Code       string
	Data       json.RawMessage
	Raw        []byte
}

// Decode unmarshals the data block into v. A data block of the wrong shape
// is a contract mismatch, so it is reported as a validation error.
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return apperrors.Validation("response has no data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return apperrors.Validation("unexpected data shape: %v", err)
	}
	return nil
}

type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	log     *logger.Logger

	mu    sync.RWMutex
	token string
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c := &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithPropagators(cfg.Propagator),
			),
		},
		tracer: tp.Tracer(tracerName),
		log:    cfg.Logger,
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// SetToken sets the bearer token sent on every later call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Tenant() string {
	return c.cfg.Tenant
}

func (c *Client) Login(ctx context.Context, username, password string) (*Response, error) {
	return c.do(ctx, OpLogin, http.MethodPost, "/login", nil, model.LoginRequest{
		Username: username,
		Password: password,
		TenantID: c.cfg.Tenant,
	})
}

func (c *Client) Logout(ctx context.Context) (*Response, error) {
	return c.do(ctx, OpLogout, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) CreateProvider(ctx context.Context, req model.CreateProviderRequest) (*Response, error) {
	return c.do(ctx, OpCreateProvider, http.MethodPost, "/provider", nil, req)
}

func (c *Client) ListProviders(ctx context.Context, page, size int) (*Response, error) {
	return c.do(ctx, OpListProviders, http.MethodGet, "/provider", pageQuery(page, size), nil)
}

func (c *Client) SetAvailability(ctx context.Context, req model.AvailabilityRequest) (*Response, error) {
	return c.do(ctx, OpSetAvailability, http.MethodPost, "/provider/availability-setting", nil, req)
}

func (c *Client) GetAvailability(ctx context.Context, providerID string) (*Response, error) {
	return c.do(ctx, OpGetAvailability, http.MethodGet, "/provider/availability-setting/"+url.PathEscape(providerID), nil, nil)
}

func (c *Client) CreatePatient(ctx context.Context, req model.CreatePatientRequest) (*Response, error) {
	return c.do(ctx, OpCreatePatient, http.MethodPost, "/patient", nil, req)
}

// ListPatients always sends searchString, empty when search is empty.
func (c *Client) ListPatients(ctx context.Context, page, size int, search string) (*Response, error) {
	q := pageQuery(page, size)
	q.Set("searchString", search)
	return c.do(ctx, OpListPatients, http.MethodGet, "/patient", q, nil)
}

// ListSlots lists the provider's free slots on date, read in timezone.
func (c *Client) ListSlots(ctx context.Context, providerID string, date tz.Date, timezone string) (*Response, error) {
	q := url.Values{}
	q.Set("date", date.String())
	q.Set("timezone", timezone)
	return c.do(ctx, OpListSlots, http.MethodGet, "/provider/"+url.PathEscape(providerID)+"/slots", q, nil)
}

func (c *Client) BookAppointment(ctx context.Context, req model.AppointmentRequest) (*Response, error) {
	return c.do(ctx, OpBookAppointment, http.MethodPost, "/appointment", nil, req)
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("size", fmt.Sprint(size))
	return q
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = u.Path + apiPrefix + path
	// Keep the parameter order stable for logs: page, size, then the rest.
	if len(query) > 0 {
		u.RawQuery = encodeQuery(query)
	}
	return u.String()
}

func encodeQuery(q url.Values) string {
	order := []string{"page", "size", "searchString", "date", "timezone"}
	var parts []string
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if vs, ok := q[k]; ok {
			seen[k] = true
			for _, v := range vs {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
	}
	rest := url.Values{}
	for k, vs := range q {
		if !seen[k] {
			rest[k] = vs
		}
	}
	if enc := rest.Encode(); enc != "" {
		parts = append(parts, enc)
	}
	return strings.Join(parts, "&")
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}) (resp *Response, err error) {
	ctx, span := c.tracer.Start(ctx, "ecare."+op, trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return c.send(ctx, op, method, path, query, body)
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body interface{}) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.Transport(op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerTenant, c.cfg.Tenant)
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.observe(op, resp, time.Since(start))
	if err != nil {
		// http.Client wraps context errors; keep them visible to errors.Is.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, apperrors.Transport(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(op, fmt.Errorf("read body: %w", err))
	}

	out := &Response{StatusCode: resp.StatusCode, Raw: raw}
	if len(bytes.TrimSpace(raw)) > 0 {
		var env model.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return out, apperrors.Transport(op, fmt.Errorf("non-JSON response (status %d): %w", resp.StatusCode, err))
		}
		out.Message = env.Message
		out.Code = env.Code
		out.Data = env.Data
	}

	c.log.Debug("api call",
		"operation", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
		"trace_id", tracing.TraceID(ctx),
	)
	return out, nil
}

func (c *Client) observe(op string, resp *http.Response, d time.Duration) {
	if c.cfg.Metrics == nil {
		return
	}
	code := "error"
	if resp != nil {
		code = fmt.Sprintf("%dxx", resp.StatusCode/100)
	}
	c.cfg.Metrics.APICalls.WithLabelValues(op, code).Inc()
	c.cfg.Metrics.APICallLatency.WithLabelValues(op).Observe(d.Seconds())
}
