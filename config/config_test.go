package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/ecare-e2e/internal/tz"
	"github.com/jwalitptl/ecare-e2e/internal/workflow"
	"github.com/jwalitptl/ecare-e2e/pkg/logger"
)

func setCredentials(t *testing.T) {
	t.Setenv("ECARE_USERNAME", "rose.gomez@jourrapide.com")
	t.Setenv("ECARE_PASSWORD", "Pass@123")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
api:
  base_url: https://stage.example.com
  tenant: stage_ketamin
`

func TestLoadSampleConfig(t *testing.T) {
	setCredentials(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "stage", cfg.Environment)
	assert.Equal(t, "stage_ketamin", cfg.API.Tenant)
	assert.Equal(t, "rose.gomez@jourrapide.com", cfg.API.Username)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "MONDAY", cfg.Runner.Availability.Day)
	assert.Equal(t, 500*time.Millisecond, cfg.Runner.Settle.InitialInterval)
	assert.False(t, cfg.Sandbox.Enabled)
	assert.Equal(t, "ecare:e2e:results", cfg.Redis.Channel)

	akst, err := tz.Lookup("AKST")
	require.NoError(t, err)
	assert.Equal(t, -9*time.Hour, akst.Offset)
}

func TestDefaultsMatchWorkflowDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := LoadConfig(writeConfig(t, minimal))
	require.NoError(t, err)

	got, err := cfg.Workflow()
	require.NoError(t, err)

	want := workflow.DefaultConfig()
	want.Username = "rose.gomez@jourrapide.com"
	want.Password = "Pass@123"
	assert.Equal(t, want, got)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "ecare_e2e", cfg.Metrics.Namespace)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
}

func TestEnvironmentOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("ECARE_ENVIRONMENT", "qa")
	t.Setenv("ECARE_BASE_URL", "https://qa.example.com")
	t.Setenv("ECARE_TENANT_ID", "qa_tenant")
	t.Setenv("ECARE_LOG_LEVEL", "DEBUG")
	t.Setenv("ECARE_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("ECARE_SANDBOX", "true")

	cfg, err := LoadConfig(writeConfig(t, minimal+"sandbox:\n  jwt_secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, "qa", cfg.Environment)
	assert.Equal(t, "https://qa.example.com", cfg.API.BaseURL)
	assert.Equal(t, "qa_tenant", cfg.API.Tenant)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", cfg.ToBrokerConfig().URL)
	assert.True(t, cfg.Sandbox.Enabled)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		creds bool
		want  string
	}{
		{"no credentials", minimal, false, "username is required"},
		{"no base url", "api:\n  tenant: t\n", true, "api.base_url is required"},
		{"bad duplicates", minimal + "runner:\n  lookup:\n    duplicates: newest\n", true, "runner.lookup.duplicates must be one of"},
		{"bad clock", minimal + "runner:\n  availability:\n    start_time: noon\n", true, "runner.availability.start_time"},
		{"unknown zone", minimal + "runner:\n  availability:\n    timezone: MARS\n", true, "runner.availability.timezone"},
		{"slot outside window", minimal + "runner:\n  availability:\n    slot_minutes: 90\n", true, "does not fit"},
		{"redis without url", minimal + "redis:\n  enabled: true\n", true, "redis.url is required"},
		{"sandbox without secret", minimal + "sandbox:\n  enabled: true\n", true, "sandbox.jwt_secret is required"},
		{"settle without timeout", minimal + "runner:\n  settle:\n    poll: true\n    timeout: 0s\n", true, "runner.settle.timeout is required"},
		{"bad trace endpoint", minimal + "tracing:\n  endpoint: http://collector\n", true, "tracing.endpoint"},
		{"bad log level", minimal + "logging:\n  level: verbose\n", true, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.creds {
				setCredentials(t)
			} else {
				t.Setenv("ECARE_USERNAME", "")
				t.Setenv("ECARE_PASSWORD", "")
			}
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConversions(t *testing.T) {
	setCredentials(t)
	cfg, err := LoadConfig(writeConfig(t, minimal+"sandbox:\n  jwt_secret: s3cret\n  index_delay: 250ms\n"))
	require.NoError(t, err)

	sb := cfg.ToSandboxConfig()
	assert.Equal(t, []string{"stage_ketamin"}, sb.Tenants)
	require.Len(t, sb.Accounts, 1)
	assert.Equal(t, "rose.gomez@jourrapide.com", sb.Accounts[0].Username)
	assert.Equal(t, 250*time.Millisecond, sb.IndexDelay)

	assert.Equal(t, "https://stage.example.com", cfg.API.Client("").BaseURL)
	assert.Equal(t, "http://127.0.0.1:8089", cfg.API.Client("http://127.0.0.1:8089").BaseURL)

	wc := cfg.ToWorkerConfig()
	assert.Equal(t, "ecare:e2e:results", wc.Channel)
	assert.Equal(t, time.Second, wc.PollInterval)

	assert.Equal(t, logger.InfoLevel, cfg.Logging.ToLoggerConfig().Level)

	tc := cfg.Tracing.ToTracingConfig("runner")
	assert.Equal(t, "ecare-e2e-runner", tc.ServiceName)
	assert.Empty(t, tc.Endpoint)
	assert.Equal(t, 1.0, tc.SampleRatio)
}
