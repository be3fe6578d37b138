package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
	"github.com/jwalitptl/ecare-e2e/internal/service"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
)

const defaultSlotMinutes = 30

type Service struct {
	providers    repository.ProviderRepository
	settings     repository.AvailabilityRepository
	appointments repository.AppointmentRepository
	now          func() time.Time
}

func NewService(
	providers repository.ProviderRepository,
	settings repository.AvailabilityRepository,
	appointments repository.AppointmentRepository,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		providers:    providers,
		settings:     settings,
		appointments: appointments,
		now:          now,
	}
}

// SetAvailability replaces the provider's weekly availability and returns the
// provider it was stored for.
func (s *Service) SetAvailability(ctx context.Context, tenant string, req *model.AvailabilityRequest) (*model.ProviderSummary, error) {
	provider, err := s.providers.Get(ctx, tenant, req.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider %s", service.ErrNotFound, req.ProviderID)
		}
		return nil, err
	}
	if _, err := tz.Lookup(req.Timezone); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	for _, st := range req.Settings {
		if _, err := slotLength(st.SlotTime); err != nil {
			return nil, err
		}
		if _, err := parseNotice(st.MinNoticeUnit); err != nil {
			return nil, err
		}
	}
	for _, ds := range req.DaySlots {
		if _, _, _, err := parseDaySlot(ds); err != nil {
			return nil, err
		}
	}
	if _, err := parseBookingWindow(req.BookingWindow); err != nil {
		return nil, err
	}

	view := &model.AvailabilitySettingView{
		ProviderID:    req.ProviderID,
		Timezone:      strings.ToUpper(req.Timezone),
		BookingWindow: req.BookingWindow,
		Settings:      req.Settings,
		DaySlots:      req.DaySlots,
		BlockDays:     req.BlockDays,
	}
	if err := s.settings.Put(ctx, tenant, view); err != nil {
		return nil, fmt.Errorf("failed to store availability: %w", err)
	}
	return provider, nil
}

func (s *Service) GetAvailability(ctx context.Context, tenant, providerID string) (*model.AvailabilitySettingView, error) {
	view, err := s.settings.Get(ctx, tenant, providerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: availability for provider %s", service.ErrNotFound, providerID)
	}
	return view, err
}

// ListSlots expands the provider's weekly availability into the free UTC slots
// whose start falls on date as seen in zoneName. An empty zoneName means the
// provider's own zone.
func (s *Service) ListSlots(ctx context.Context, tenant, providerID string, date tz.Date, zoneName string) ([]model.Slot, error) {
	view, err := s.GetAvailability(ctx, tenant, providerID)
	if err != nil {
		return nil, err
	}
	providerZone, err := tz.Lookup(view.Timezone)
	if err != nil {
		return nil, err
	}
	viewZone := providerZone
	if zoneName != "" {
		if viewZone, err = tz.Lookup(zoneName); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
	}

	slotLen := time.Duration(defaultSlotMinutes) * time.Minute
	var notice time.Duration
	if len(view.Settings) > 0 {
		slotLen, _ = slotLength(view.Settings[0].SlotTime)
		notice, _ = parseNotice(view.Settings[0].MinNoticeUnit)
	}
	horizon, _ := parseBookingWindow(view.BookingWindow)

	now := s.now()
	earliest := now.Add(notice)

	// The requested date may straddle two provider-local dates.
	var candidates []model.Slot
	for d := -1; d <= 1; d++ {
		day := date.AddDays(d)
		for _, ds := range view.DaySlots {
			wd, start, end, _ := parseDaySlot(ds)
			if day.Weekday() != wd {
				continue
			}
			from := providerZone.ToUTC(day, start)
			to := providerZone.ToUTC(day, end)
			for st := from; !st.Add(slotLen).After(to); st = st.Add(slotLen) {
				if localDate, _ := viewZone.ToLocal(st); localDate != date {
					continue
				}
				if st.Before(earliest) || (horizon > 0 && st.After(now.Add(horizon))) {
					continue
				}
				if blocked(view.BlockDays, providerZone, st) {
					continue
				}
				candidates = append(candidates, model.Slot{
					StartTime:        st,
					EndTime:          st.Add(slotLen),
					AvailabilityMode: ds.AvailabilityMode,
					Available:        true,
				})
			}
		}
	}
	if len(candidates) == 0 {
		return []model.Slot{}, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StartTime.Before(candidates[j].StartTime) })
	booked, err := s.appointments.BookedStarts(ctx, tenant, providerID,
		candidates[0].StartTime, candidates[len(candidates)-1].EndTime)
	if err != nil {
		return nil, err
	}

	slots := make([]model.Slot, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := booked[c.StartTime.Unix()]; ok {
			continue
		}
		slots = append(slots, c)
	}
	return slots, nil
}

// IsOffered reports whether [start, end) is currently a free slot of the provider.
func (s *Service) IsOffered(ctx context.Context, tenant, providerID string, start, end time.Time) (bool, error) {
	view, err := s.GetAvailability(ctx, tenant, providerID)
	if err != nil {
		return false, err
	}
	zone, err := tz.Lookup(view.Timezone)
	if err != nil {
		return false, err
	}
	day, _ := zone.ToLocal(start)
	slots, err := s.ListSlots(ctx, tenant, providerID, day, zone.Name)
	if err != nil {
		return false, err
	}
	for _, sl := range slots {
		if sl.StartTime.Equal(start) && sl.EndTime.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func parseDaySlot(ds model.DaySlot) (time.Weekday, tz.Clock, tz.Clock, error) {
	wd, err := tz.ParseWeekday(ds.Day)
	if err != nil {
		return 0, tz.Clock{}, tz.Clock{}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	start, err := tz.ParseClock(ds.StartTime)
	if err != nil {
		return 0, tz.Clock{}, tz.Clock{}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	end, err := tz.ParseClock(ds.EndTime)
	if err != nil {
		return 0, tz.Clock{}, tz.Clock{}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if !start.Before(end) {
		return 0, tz.Clock{}, tz.Clock{}, fmt.Errorf("%w: %s slot ends before it starts", service.ErrInvalidInput, ds.Day)
	}
	return wd, start, end, nil
}

func slotLength(s string) (time.Duration, error) {
	if s == "" {
		return defaultSlotMinutes * time.Minute, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid slot time %q", service.ErrInvalidInput, s)
	}
	return time.Duration(n) * time.Minute, nil
}

// parseNotice reads minimum notice values such as "8_HOUR" or "2_DAY".
func parseNotice(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	num, unit, ok := strings.Cut(s, "_")
	n, err := strconv.Atoi(num)
	if !ok || err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid minimum notice %q", service.ErrInvalidInput, s)
	}
	switch strings.ToUpper(unit) {
	case "MINUTE":
		return time.Duration(n) * time.Minute, nil
	case "HOUR":
		return time.Duration(n) * time.Hour, nil
	case "DAY":
		return time.Duration(n) * 24 * time.Hour, nil
	case "WEEK":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: invalid minimum notice unit %q", service.ErrInvalidInput, unit)
}

// parseBookingWindow reads the booking horizon in weeks. Zero means unlimited.
func parseBookingWindow(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid booking window %q", service.ErrInvalidInput, s)
	}
	return time.Duration(n) * 7 * 24 * time.Hour, nil
}

func blocked(days []model.BlockDay, zone tz.Zone, t time.Time) bool {
	localDate, localClock := zone.ToLocal(t)
	for _, b := range days {
		d, err := tz.ParseDate(b.Date)
		if err != nil || d != localDate {
			continue
		}
		start, errS := tz.ParseClock(b.StartTime)
		end, errE := tz.ParseClock(b.EndTime)
		if errS != nil || errE != nil {
			return true
		}
		if !localClock.Before(start) && localClock.Before(end) {
			return true
		}
	}
	return false
}
