package workflow

import (
	"fmt"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
)

// DuplicatePolicy decides what a lookup does when several records match.
type DuplicatePolicy string

const (
	// DuplicateFirst takes the first match in listing order.
	DuplicateFirst DuplicatePolicy = "first"
	// DuplicateFail fails the step.
	DuplicateFail DuplicatePolicy = "fail"
)

type LookupConfig struct {
	PageSize        int
	MaxPages        int
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Duplicates      DuplicatePolicy
}

// SettleConfig controls the wait between setting availability and querying it.
type SettleConfig struct {
	// Poll queries the slot listing until the target slot shows up. When
	// false the run sleeps FixedWait instead.
	Poll            bool
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	FixedWait       time.Duration
}

// maxFixedWait caps SettleConfig.FixedWait.
const maxFixedWait = 30 * time.Second

type Config struct {
	Environment string
	Username    string
	Password    string
	// ProviderMailbox, when set, receives provider mail through plus-addressing.
	ProviderMailbox string
	Window          model.AvailabilityWindow
	PatientBirth    time.Time
	StepTimeout     time.Duration
	Lookup          LookupConfig
	Settle          SettleConfig
}

// DefaultConfig is the weekly Monday 12:00-13:00 EST virtual availability
// with 30 minute slots.
func DefaultConfig() Config {
	return Config{
		Environment: "stage",
		Window: model.AvailabilityWindow{
			Day:           time.Monday,
			StartTime:     "12:00:00",
			EndTime:       "13:00:00",
			Timezone:      "EST",
			Mode:          model.ModeVirtual,
			SlotMinutes:   30,
			BookingWindow: "3",
			MinNoticeUnit: "8_HOUR",
		},
		PatientBirth: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
		StepTimeout:  60 * time.Second,
		Lookup: LookupConfig{
			PageSize:        20,
			MaxPages:        5,
			Attempts:        5,
			InitialInterval: time.Second,
			MaxInterval:     8 * time.Second,
			Duplicates:      DuplicateFirst,
		},
		Settle: SettleConfig{
			Poll:            true,
			Timeout:         30 * time.Second,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			FixedWait:       3 * time.Second,
		},
	}
}

// Validate checks the configuration before any call is made.
func (c Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	if c.Window.SlotMinutes <= 0 {
		return fmt.Errorf("slot length must be positive")
	}
	zone, err := tz.Lookup(c.Window.Timezone)
	if err != nil {
		return err
	}
	start, err := tz.ParseClock(c.Window.StartTime)
	if err != nil {
		return err
	}
	end, err := tz.ParseClock(c.Window.EndTime)
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("availability window %s-%s is empty", c.Window.StartTime, c.Window.EndTime)
	}
	// The first slot has to fit inside the window.
	day := tz.Date{Year: 2000, Month: time.January, Day: 3}
	if zone.ToUTC(day, start).Add(c.slotLength()).After(zone.ToUTC(day, end)) {
		return fmt.Errorf("a %d minute slot does not fit in %s-%s", c.Window.SlotMinutes, c.Window.StartTime, c.Window.EndTime)
	}
	switch c.Lookup.Duplicates {
	case DuplicateFirst, DuplicateFail:
	default:
		return fmt.Errorf("unknown duplicate policy %q", c.Lookup.Duplicates)
	}
	if c.Lookup.PageSize <= 0 || c.Lookup.MaxPages <= 0 || c.Lookup.Attempts <= 0 {
		return fmt.Errorf("lookup page size, max pages and attempts must be positive")
	}
	if c.Lookup.InitialInterval <= 0 || c.Lookup.MaxInterval <= 0 {
		return fmt.Errorf("lookup intervals must be positive")
	}
	// backoff reads a zero MaxElapsedTime as "retry forever".
	if c.Settle.Poll {
		if c.Settle.Timeout <= 0 {
			return fmt.Errorf("settle timeout must be positive when polling")
		}
		if c.Settle.InitialInterval <= 0 || c.Settle.MaxInterval <= 0 {
			return fmt.Errorf("settle intervals must be positive when polling")
		}
	}
	if c.Settle.FixedWait < 0 {
		return fmt.Errorf("settle fixed wait must not be negative")
	}
	return nil
}

func (c Config) slotLength() time.Duration {
	return time.Duration(c.Window.SlotMinutes) * time.Minute
}
