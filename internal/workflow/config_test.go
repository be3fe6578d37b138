package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesScenario(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Monday, cfg.Window.Day)
	assert.Equal(t, "12:00:00", cfg.Window.StartTime)
	assert.Equal(t, "13:00:00", cfg.Window.EndTime)
	assert.Equal(t, "EST", cfg.Window.Timezone)
	assert.Equal(t, "8_HOUR", cfg.Window.MinNoticeUnit)
	assert.Equal(t, DuplicateFirst, cfg.Lookup.Duplicates)
	assert.Equal(t, 20, cfg.Lookup.PageSize)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no password", func(c *Config) { c.Password = "" }},
		{"unknown zone", func(c *Config) { c.Window.Timezone = "Mars/Olympus" }},
		{"bad clock", func(c *Config) { c.Window.StartTime = "noon" }},
		{"empty window", func(c *Config) { c.Window.EndTime = c.Window.StartTime }},
		{"slot too long", func(c *Config) { c.Window.SlotMinutes = 90 }},
		{"zero slot", func(c *Config) { c.Window.SlotMinutes = 0 }},
		{"bad policy", func(c *Config) { c.Lookup.Duplicates = "newest" }},
		{"zero pages", func(c *Config) { c.Lookup.MaxPages = 0 }},
		{"zero lookup interval", func(c *Config) { c.Lookup.InitialInterval = 0 }},
		{"unbounded settle", func(c *Config) { c.Settle.Poll = true; c.Settle.Timeout = 0 }},
		{"zero settle interval", func(c *Config) { c.Settle.Poll = true; c.Settle.InitialInterval = 0 }},
		{"zero settle max interval", func(c *Config) { c.Settle.Poll = true; c.Settle.MaxInterval = 0 }},
		{"negative fixed wait", func(c *Config) { c.Settle.FixedWait = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "LoggedOut", PhaseLoggedOut.String())
	assert.Equal(t, "AvailabilitySet", PhaseAvailabilitySet.String())
	assert.Equal(t, "AppointmentBooked", PhaseAppointmentBooked.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}

func TestTargetSlot(t *testing.T) {
	w := DefaultConfig().Window

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"thursday", time.Date(2026, time.October, 15, 15, 0, 0, 0, time.UTC), time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC)},
		{"monday rolls a full week", time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC), time.Date(2026, time.October, 26, 17, 0, 0, 0, time.UTC)},
		// 02:00 UTC Monday is still Sunday in EST.
		{"sunday evening in EST", time.Date(2026, time.October, 19, 2, 0, 0, 0, time.UTC), time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := targetSlot(tt.now, w, 30*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.want, slot.UTCStart)
			assert.Equal(t, tt.want.Add(30*time.Minute), slot.UTCEnd)
			assert.Equal(t, time.Monday, slot.Date.Weekday())
			assert.True(t, slot.UTCStart.After(tt.now))
		})
	}
}
