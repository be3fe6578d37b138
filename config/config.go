// Package config loads runner and sandbox settings from config.yml, with
// ECARE_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/sandbox"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
	"github.com/jwalitptl/ecare-e2e/internal/workflow"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
	"github.com/jwalitptl/ecare-e2e/pkg/messaging/redis"
	"github.com/jwalitptl/ecare-e2e/pkg/tracing"
	"github.com/jwalitptl/ecare-e2e/pkg/validator"
	"github.com/jwalitptl/ecare-e2e/pkg/worker"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ECARE"

type Config struct {
	Environment string        `mapstructure:"environment" validate:"required"`
	API         APIConfig     `mapstructure:"api"`
	Runner      RunnerConfig  `mapstructure:"runner"`
	Sandbox     SandboxConfig `mapstructure:"sandbox"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Outbox      OutboxConfig  `mapstructure:"outbox"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Logging     LoggingConfig `mapstructure:"logging"`

	// Timezones extends the zone table, in hours east of UTC.
	Timezones map[string]float64 `mapstructure:"timezones"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	Tenant    string        `mapstructure:"tenant" validate:"required"`
	Username  string        `mapstructure:"username" validate:"required"`
	Password  string        `mapstructure:"password" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int           `mapstructure:"rate_burst" validate:"gte=0"`
}

type AvailabilityConfig struct {
	Day           string `mapstructure:"day" validate:"required,weekday"`
	StartTime     string `mapstructure:"start_time" validate:"required,clock"`
	EndTime       string `mapstructure:"end_time" validate:"required,clock"`
	Timezone      string `mapstructure:"timezone" validate:"required,timezone"`
	Mode          string `mapstructure:"mode" validate:"oneof=VIRTUAL IN_PERSON"`
	SlotMinutes   int    `mapstructure:"slot_minutes" validate:"gt=0"`
	BookingWindow string `mapstructure:"booking_window" validate:"required,numeric"`
	MinNotice     string `mapstructure:"min_notice" validate:"required"`
}

type LookupConfig struct {
	PageSize        int           `mapstructure:"page_size" validate:"gt=0"`
	MaxPages        int           `mapstructure:"max_pages" validate:"gt=0"`
	Attempts        int           `mapstructure:"attempts" validate:"gt=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gt=0"`
	Duplicates      string        `mapstructure:"duplicates" validate:"oneof=first fail"`
}

type SettleConfig struct {
	Poll            bool          `mapstructure:"poll"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"required_if=Poll true,gte=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gt=0"`
	FixedWait       time.Duration `mapstructure:"fixed_wait" validate:"gte=0"`
}

type RunnerConfig struct {
	ProviderMailbox  string        `mapstructure:"provider_mailbox" validate:"omitempty,email"`
	PatientBirthDate string        `mapstructure:"patient_birth_date" validate:"required,datetime=2006-01-02"`
	StepTimeout      time.Duration `mapstructure:"step_timeout" validate:"gte=0"`
	// Interval above zero turns the runner into a monitor that reruns forever.
	Interval         time.Duration `mapstructure:"interval" validate:"gte=0"`

	Availability AvailabilityConfig `mapstructure:"availability"`
	Lookup       LookupConfig       `mapstructure:"lookup"`
	Settle       SettleConfig       `mapstructure:"settle"`
}

// SandboxConfig describes the in-process fake API. When Enabled, the runner
// starts it and points the client at it.
type SandboxConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required_if=Enabled true"`
	TokenTTL       time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
	IndexDelay     time.Duration `mapstructure:"index_delay" validate:"gte=0"`
	Tenants        []string      `mapstructure:"tenants"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url" validate:"required_if=Enabled true"`
	Channel      string        `mapstructure:"channel" validate:"required_if=Enabled true"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" validate:"gt=0"`
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gt=0"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path      string `mapstructure:"path" validate:"required_if=Enabled true"`
	Namespace string `mapstructure:"namespace" validate:"required"`
}

// TracingConfig names the service on spans and, optionally, where to send them.
type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// envOverrides are read from ECARE_<NAME>.
type envOverrides struct {
	Environment string `envconfig:"ENVIRONMENT"`
	BaseURL     string `envconfig:"BASE_URL"`
	Tenant      string `envconfig:"TENANT_ID"`
	Username    string `envconfig:"USERNAME"`
	Password    string `envconfig:"PASSWORD"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	RedisURL    string `envconfig:"REDIS_URL"`
	Sandbox     *bool  `envconfig:"SANDBOX"`
}

// LoadConfig reads path, or config.yml from . and ./config when path is
// empty. A missing default file is not an error: defaults and environment
// overrides still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for name, hours := range cfg.Timezones {
		tz.Register(name, time.Duration(math.Round(hours*60))*time.Minute)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	wf := workflow.DefaultConfig()
	w := wf.Window

	v.SetDefault("environment", wf.Environment)
	v.SetDefault("api.timeout", client.DefaultTimeout)

	v.SetDefault("runner.patient_birth_date", wf.PatientBirth.Format(time.DateOnly))
	v.SetDefault("runner.step_timeout", wf.StepTimeout)
	v.SetDefault("runner.availability.day", tz.WeekdayName(w.Day))
	v.SetDefault("runner.availability.start_time", w.StartTime)
	v.SetDefault("runner.availability.end_time", w.EndTime)
	v.SetDefault("runner.availability.timezone", w.Timezone)
	v.SetDefault("runner.availability.mode", w.Mode)
	v.SetDefault("runner.availability.slot_minutes", w.SlotMinutes)
	v.SetDefault("runner.availability.booking_window", w.BookingWindow)
	v.SetDefault("runner.availability.min_notice", w.MinNoticeUnit)
	v.SetDefault("runner.lookup.page_size", wf.Lookup.PageSize)
	v.SetDefault("runner.lookup.max_pages", wf.Lookup.MaxPages)
	v.SetDefault("runner.lookup.attempts", wf.Lookup.Attempts)
	v.SetDefault("runner.lookup.initial_interval", wf.Lookup.InitialInterval)
	v.SetDefault("runner.lookup.max_interval", wf.Lookup.MaxInterval)
	v.SetDefault("runner.lookup.duplicates", string(wf.Lookup.Duplicates))
	v.SetDefault("runner.settle.poll", wf.Settle.Poll)
	v.SetDefault("runner.settle.timeout", wf.Settle.Timeout)
	v.SetDefault("runner.settle.initial_interval", wf.Settle.InitialInterval)
	v.SetDefault("runner.settle.max_interval", wf.Settle.MaxInterval)
	v.SetDefault("runner.settle.fixed_wait", wf.Settle.FixedWait)

	v.SetDefault("sandbox.token_ttl", time.Hour)
	v.SetDefault("sandbox.index_delay", 2*time.Second)
	v.SetDefault("sandbox.request_timeout", 30*time.Second)

	v.SetDefault("redis.channel", "ecare:e2e:results")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 500*time.Millisecond)

	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "ecare_e2e")

	v.SetDefault("tracing.service_name", "ecare-e2e")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("logging.level", "info")
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Environment, env.Environment)
	set(&c.API.BaseURL, env.BaseURL)
	set(&c.API.Tenant, env.Tenant)
	set(&c.API.Username, env.Username)
	set(&c.API.Password, env.Password)
	set(&c.Logging.Level, strings.ToLower(env.LogLevel))
	if env.RedisURL != "" {
		c.Redis.URL = env.RedisURL
		c.Redis.Enabled = true
	}
	if env.Sandbox != nil {
		c.Sandbox.Enabled = *env.Sandbox
	}
	return nil
}

// Validate checks the struct tags and the rules that span sections.
func (c *Config) Validate() error {
	v, err := validator.New(
		validator.WithRule("weekday", func(s string) bool {
			_, err := tz.ParseWeekday(s)
			return err == nil
		}),
		validator.WithRule("clock", func(s string) bool {
			_, err := tz.ParseClock(s)
			return err == nil
		}),
		validator.WithRule("timezone", func(s string) bool {
			_, err := tz.Lookup(s)
			return err == nil
		}),
	)
	if err != nil {
		return err
	}
	if err := v.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.Sandbox.Enabled && c.API.BaseURL == "" {
		return fmt.Errorf("invalid config: api.base_url is required unless sandbox.enabled is set")
	}
	wf, err := c.Workflow()
	if err != nil {
		return err
	}
	if err := wf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Workflow converts the runner section.
func (c *Config) Workflow() (workflow.Config, error) {
	r := c.Runner
	day, err := tz.ParseWeekday(r.Availability.Day)
	if err != nil {
		return workflow.Config{}, err
	}
	birth, err := time.Parse(time.DateOnly, r.PatientBirthDate)
	if err != nil {
		return workflow.Config{}, fmt.Errorf("runner.patient_birth_date: %w", err)
	}
	return workflow.Config{
		Environment:     c.Environment,
		Username:        c.API.Username,
		Password:        c.API.Password,
		ProviderMailbox: r.ProviderMailbox,
		Window: model.AvailabilityWindow{
			Day:           day,
			StartTime:     r.Availability.StartTime,
			EndTime:       r.Availability.EndTime,
			Timezone:      strings.ToUpper(r.Availability.Timezone),
			Mode:          r.Availability.Mode,
			SlotMinutes:   r.Availability.SlotMinutes,
			BookingWindow: r.Availability.BookingWindow,
			MinNoticeUnit: r.Availability.MinNotice,
		},
		PatientBirth: birth,
		StepTimeout:  r.StepTimeout,
		Lookup: workflow.LookupConfig{
			PageSize:        r.Lookup.PageSize,
			MaxPages:        r.Lookup.MaxPages,
			Attempts:        r.Lookup.Attempts,
			InitialInterval: r.Lookup.InitialInterval,
			MaxInterval:     r.Lookup.MaxInterval,
			Duplicates:      workflow.DuplicatePolicy(r.Lookup.Duplicates),
		},
		Settle: workflow.SettleConfig{
			Poll:            r.Settle.Poll,
			Timeout:         r.Settle.Timeout,
			InitialInterval: r.Settle.InitialInterval,
			MaxInterval:     r.Settle.MaxInterval,
			FixedWait:       r.Settle.FixedWait,
		},
	}, nil
}

// Client converts the api section. baseURL overrides api.base_url when set.
func (c *APIConfig) Client(baseURL string) client.Config {
	if baseURL == "" {
		baseURL = c.BaseURL
	}
	return client.Config{
		BaseURL:   baseURL,
		Tenant:    c.Tenant,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	}
}

// ToSandboxConfig builds a sandbox that accepts the api credentials.
func (c *Config) ToSandboxConfig() sandbox.Config {
	tenants := c.Sandbox.Tenants
	if len(tenants) == 0 {
		tenants = []string{c.API.Tenant}
	}
	return sandbox.Config{
		Accounts:       []sandbox.Account{{Username: c.API.Username, Password: c.API.Password}},
		Tenants:        tenants,
		JWTSecret:      c.Sandbox.JWTSecret,
		TokenTTL:       c.Sandbox.TokenTTL,
		IndexDelay:     c.Sandbox.IndexDelay,
		RateLimit:      c.Sandbox.RateLimit,
		RateBurst:      c.Sandbox.RateBurst,
		RequestTimeout: c.Sandbox.RequestTimeout,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *Config) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       c.Redis.Channel,
		BatchSize:     c.Outbox.BatchSize,
		PollInterval:  c.Outbox.PollInterval,
		RetryAttempts: c.Outbox.RetryAttempts,
		RetryDelay:    c.Outbox.RetryDelay,
	}
}

// ToTracingConfig names the spans of component, e.g. "runner" or "sandbox".
func (c *TracingConfig) ToTracingConfig(component string) tracing.Config {
	name := c.ServiceName
	if component != "" {
		name += "-" + component
	}
	return tracing.Config{
		ServiceName: name,
		Endpoint:    c.Endpoint,
		Insecure:    c.Insecure,
		SampleRatio: c.SampleRatio,
	}
}

func (c *LoggingConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		JSON:       c.JSON,
	}
}
