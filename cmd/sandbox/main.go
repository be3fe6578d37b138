package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/ecare-e2e/config"
	"github.com/jwalitptl/ecare-e2e/internal/sandbox"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Sandbox.JWTSecret == "" {
		log.Fatal().Msg("sandbox.jwt_secret is required")
	}

	appLogger := logger.NewLogger(cfg.Logging.ToLoggerConfig())
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := tracing.NewProvider(context.Background(), cfg.Tracing.ToTracingConfig("sandbox"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	tracing.Install(tp)

	reg := prometheus.NewRegistry()
	sbCfg := cfg.ToSandboxConfig()
	sbCfg.Logger = appLogger
	sbCfg.Registerer = reg
	sbCfg.TracerProvider = tp

	sb, err := sandbox.New(sbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sandbox")
	}

	engine := sb.Engine()
	engine.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Sandbox.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start server
	go func() {
		appLogger.Info("sandbox listening", "addr", srv.Addr, "tenants", sbCfg.Tenants, "index_delay", sbCfg.IndexDelay.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited properly")
}
