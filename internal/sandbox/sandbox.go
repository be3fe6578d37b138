// Package sandbox assembles an in-process imitation of the scheduling API:
// login, providers, availability settings, slots, patients and appointments.
// It is what the runner is pointed at in tests and local runs.
package sandbox

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
	appointmentHandler "github.com/jwalitptl/ecare-e2e/internal/handler/appointment"
	authHandler "github.com/jwalitptl/ecare-e2e/internal/handler/auth"
	availabilityHandler "github.com/jwalitptl/ecare-e2e/internal/handler/availability"
	patientHandler "github.com/jwalitptl/ecare-e2e/internal/handler/patient"
	providerHandler "github.com/jwalitptl/ecare-e2e/internal/handler/provider"
	"github.com/jwalitptl/ecare-e2e/internal/middleware"
	"github.com/jwalitptl/ecare-e2e/internal/repository/memory"
	"github.com/jwalitptl/ecare-e2e/internal/router"
	appointmentService "github.com/jwalitptl/ecare-e2e/internal/service/appointment"
	authService "github.com/jwalitptl/ecare-e2e/internal/service/auth"
	availabilityService "github.com/jwalitptl/ecare-e2e/internal/service/availability"
	patientService "github.com/jwalitptl/ecare-e2e/internal/service/patient"
	providerService "github.com/jwalitptl/ecare-e2e/internal/service/provider"
	"github.com/jwalitptl/ecare-e2e/pkg/auth"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/security"
)

// Account is a login the sandbox accepts.
type Account struct {
	Username string
	Password string
}

type Config struct {
	Accounts []Account
	// Tenants restricts X-TENANT-ID. Empty accepts any tenant.
	Tenants    []string
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	// IndexDelay is how long new records stay out of listings and slot queries.
	IndexDelay     time.Duration
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	// Now is the sandbox clock for indexing and slot notice rules.
	Now            func() time.Time
	Logger         *logger.Logger
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
}

type Sandbox struct {
	router *router.Router
}

func New(cfg Config) (*Sandbox, error) {
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("sandbox needs at least one account")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("sandbox needs a JWT secret")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	creds := security.NewCredentials(cfg.BcryptCost)
	for _, a := range cfg.Accounts {
		if err := creds.Add(a.Username, a.Password); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Username, err)
		}
	}

	db := memory.NewDB(memory.Config{IndexDelay: cfg.IndexDelay, Now: cfg.Now})
	providerRepo := memory.NewProviderRepository(db)
	patientRepo := memory.NewPatientRepository(db)
	availabilityRepo := memory.NewAvailabilityRepository(db)
	appointmentRepo := memory.NewAppointmentRepository(db)

	authSvc := authService.NewService(creds, auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL), 10*time.Minute)
	providerSvc := providerService.NewService(providerRepo)
	patientSvc := patientService.NewService(patientRepo, cfg.Now)
	availabilitySvc := availabilityService.NewService(providerRepo, availabilityRepo, appointmentRepo, cfg.Now)
	appointmentSvc := appointmentService.NewService(appointmentRepo, providerRepo, patientRepo, availabilitySvc)

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		middleware.NewTenantMiddleware(middleware.TenantConfig{Allowed: cfg.Tenants}),
		authHandler.NewHandler(authSvc),
		providerHandler.NewHandler(providerSvc),
		availabilityHandler.NewHandler(availabilitySvc),
		patientHandler.NewHandler(patientSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		handler.NewHandler(),
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit),
			RateBurst:      cfg.RateBurst,
			RequestTimeout: cfg.RequestTimeout,
			Registerer:     cfg.Registerer,
			TracerProvider: cfg.TracerProvider,
			Propagator:     cfg.Propagator,
			Logger:         cfg.Logger,
		},
	)
	r.Setup()

	return &Sandbox{router: r}, nil
}

func (s *Sandbox) Handler() http.Handler {
	return s.router.Engine()
}

// Engine exposes the gin engine for tests that drive it directly.
func (s *Sandbox) Engine() *gin.Engine {
	return s.router.Engine()
}
