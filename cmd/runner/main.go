package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/ecare-e2e/config"
	"github.com/jwalitptl/ecare-e2e/internal/sandbox"
	monitor "github.com/jwalitptl/ecare-e2e/internal/worker"
	"github.com/jwalitptl/ecare-e2e/internal/workflow"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/messaging/redis"
	"github.com/jwalitptl/ecare-e2e/pkg/metrics"
	"github.com/jwalitptl/ecare-e2e/pkg/repository"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
	"github.com/jwalitptl/ecare-e2e/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	os.Exit(run(cfg))
}

// run returns the process exit code: 0 when every step passed.
func run(cfg *config.Config) int {
	appLogger := logger.NewLogger(cfg.Logging.ToLoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace, reg)

	tp, err := tracing.NewProvider(ctx, cfg.Tracing.ToTracingConfig("runner"))
	if err != nil {
		appLogger.Error(err, "failed to set up tracing")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(err, "failed to flush traces")
		}
	}()
	tracing.Install(tp)

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics, reg, appLogger)
		defer shutdown(srv, appLogger)
	}

	baseURL := ""
	if cfg.Sandbox.Enabled {
		url, srv, err := startSandbox(cfg, reg, appLogger)
		if err != nil {
			appLogger.Error(err, "failed to start sandbox")
			return 1
		}
		defer shutdown(srv, appLogger)
		baseURL = url
	}

	var outbox repository.OutboxRepository
	if cfg.Redis.Enabled {
		broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), appLogger)
		if err != nil {
			appLogger.Error(err, "failed to create Redis broker")
			return 1
		}
		defer broker.Close()

		mem := repository.NewMemoryOutbox()
		processor, err := worker.NewOutboxProcessor(mem, broker, cfg.ToWorkerConfig(), appLogger, m)
		if err != nil {
			appLogger.Error(err, "failed to create outbox processor")
			return 1
		}
		go processor.Start(ctx)
		defer flush(processor, appLogger)
		outbox = mem
	}

	wfCfg, err := cfg.Workflow()
	if err != nil {
		appLogger.Error(err, "invalid runner configuration")
		return 1
	}
	clientCfg := cfg.API.Client(baseURL)
	orchestrator, err := workflow.New(wfCfg, clientCfg,
		workflow.WithLogger(appLogger),
		workflow.WithMetrics(m),
		workflow.WithTracerProvider(tp),
	)
	if err != nil {
		appLogger.Error(err, "failed to create workflow")
		return 1
	}

	mon := monitor.NewMonitor(orchestrator, cfg.Runner.Interval, outbox, appLogger, m)

	if cfg.Runner.Interval > 0 {
		mon.Start(ctx)
		return 0
	}

	report, err := mon.RunOnce(ctx)
	if err != nil || report.Summary.Passed != report.Summary.Total || report.Summary.Total == 0 {
		return 1
	}
	return 0
}

func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, appLogger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "metrics server failed")
		}
	}()
	appLogger.Info("serving metrics", "addr", cfg.Addr, "path", cfg.Path)
	return srv
}

// startSandbox serves the fake API on sandbox.port, or on a free port when
// the port is 0, and returns its base URL.
func startSandbox(cfg *config.Config, reg prometheus.Registerer, appLogger *logger.Logger) (string, *http.Server, error) {
	sbCfg := cfg.ToSandboxConfig()
	sbCfg.Logger = appLogger.WithFields(map[string]interface{}{"component": "sandbox"})
	sbCfg.Registerer = reg
	sb, err := sandbox.New(sbCfg)
	if err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Sandbox.Port))
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen: %w", err)
	}
	srv := &http.Server{Handler: sb.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "sandbox server failed")
		}
	}()

	url := "http://" + ln.Addr().String()
	appLogger.Info("sandbox listening", "url", url, "index_delay", cfg.Sandbox.IndexDelay.String())
	return url, srv, nil
}

func shutdown(srv *http.Server, appLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}
}

// flush publishes what the run left in the outbox, bounded so a dead broker
// cannot hold the process.
func flush(p *worker.OutboxProcessor, appLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := p.Flush(ctx)
	if err != nil {
		appLogger.Error(err, "failed to flush results")
		return
	}
	appLogger.Info("results published", "events", n)
}
