package tz

import (
	"fmt"
	"time"
)

// Window is one slot authored in a provider's zone, with both representations.
type Window struct {
	Zone       Zone
	Date       Date
	LocalStart time.Time
	LocalEnd   time.Time
	UTCStart   time.Time
	UTCEnd     time.Time
}

// NewWindow computes the local and UTC bounds of [start, end) on day in zone.
func NewWindow(zone Zone, day Date, start, end Clock) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("window start %s is not before end %s", start, end)
	}
	utcStart := zone.ToUTC(day, start)
	utcEnd := zone.ToUTC(day, end)
	return Window{
		Zone:       zone,
		Date:       day,
		LocalStart: utcStart.In(zone.Location()),
		LocalEnd:   utcEnd.In(zone.Location()),
		UTCStart:   utcStart,
		UTCEnd:     utcEnd,
	}, nil
}

// NextWindow places [start, end) on the next wd strictly after now, in zone.
func NextWindow(now time.Time, zone Zone, wd time.Weekday, start, end Clock) (Window, error) {
	day := NextWeekday(now.In(zone.Location()), wd)
	return NewWindow(zone, day, start, end)
}

// Contains reports whether t falls in [UTCStart, UTCEnd).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.UTCStart) && t.Before(w.UTCEnd)
}
