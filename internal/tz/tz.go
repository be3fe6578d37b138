// Package tz converts between a provider's displayed wall clock and UTC
// instants using fixed UTC offsets.
//
// Zones are looked up in a static table, never in the tz database, so
// daylight-saving transitions are ignored: "EST" is always UTC-5. The
// scheduling product labels availability with these abbreviations and
// treats them as fixed offsets, so the runner must do the same to predict
// which UTC slots the product will publish.
package tz

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// Zone is a named fixed UTC offset.
type Zone struct {
	Name   string
	Offset time.Duration
}

var (
	mu    sync.RWMutex
	zones = map[string]Zone{
		"UTC": {Name: "UTC", Offset: 0},
		"EST": {Name: "EST", Offset: -5 * time.Hour},
		"CST": {Name: "CST", Offset: -6 * time.Hour},
		"MST": {Name: "MST", Offset: -7 * time.Hour},
		"PST": {Name: "PST", Offset: -8 * time.Hour},
		"IST": {Name: "IST", Offset: 5*time.Hour + 30*time.Minute},
	}
)

// Register adds or replaces a zone in the offset table.
func Register(name string, offset time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	name = strings.ToUpper(name)
	zones[name] = Zone{Name: name, Offset: offset}
}

// Lookup returns the zone registered under name.
func Lookup(name string) (Zone, error) {
	mu.RLock()
	defer mu.RUnlock()
	z, ok := zones[strings.ToUpper(name)]
	if !ok {
		return Zone{}, fmt.Errorf("unknown timezone %q", name)
	}
	return z, nil
}

// MustLookup is Lookup for names known to be in the table.
func MustLookup(name string) Zone {
	z, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return z
}

// FromHours builds an anonymous zone from an offset in hours, e.g. -5 or 5.5.
func FromHours(hours float64) Zone {
	d := time.Duration(math.Round(hours*60)) * time.Minute
	return Zone{Name: fmt.Sprintf("UTC%+g", hours), Offset: d}
}

// Location returns a time.Location with this zone's fixed offset.
func (z Zone) Location() *time.Location {
	return time.FixedZone(z.Name, int(z.Offset/time.Second))
}

// ToUTC returns the instant at which the wall clock in this zone reads clock on day.
func (z Zone) ToUTC(day Date, clock Clock) time.Time {
	local := time.Date(day.Year, day.Month, day.Day, clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, z.Location())
	return local.UTC()
}

// ToLocal returns the civil date and wall clock of t in this zone.
func (z Zone) ToLocal(t time.Time) (Date, Clock) {
	local := t.In(z.Location())
	return DateOf(local), ClockOf(local)
}

// Today returns the date in this zone at instant now.
func (z Zone) Today(now time.Time) Date {
	return DateOf(now.In(z.Location()))
}

// ToUTC interprets the wall clock of local (its location is ignored) as a time
// at offsetHours from UTC and returns the corresponding UTC instant.
func ToUTC(local time.Time, offsetHours float64) time.Time {
	z := FromHours(offsetHours)
	return z.ToUTC(DateOf(local), ClockOf(local))
}

// ToLocal returns instant expressed in the fixed zone offsetHours from UTC.
func ToLocal(instant time.Time, offsetHours float64) time.Time {
	return instant.In(FromHours(offsetHours).Location())
}
