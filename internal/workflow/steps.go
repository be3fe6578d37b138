package workflow

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/datagen"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
	apperrors "github.com/jwalitptl/ecare-e2e/pkg/errors"
)

// Step names as they appear in the result log.
const (
	StepLogin           = "Provider Login"
	StepAddProvider     = "Add Provider"
	StepGetProvider     = "Get Provider"
	StepSetAvailability = "Set Availability"
	StepCreatePatient   = "Create Patient"
	StepGetPatient      = "Get Patient"
	StepGetAvailability = "Get Availability"
	StepBookAppointment = "Book Appointment"
)

// StepNames lists the steps in execution order.
func StepNames() []string {
	return []string{
		StepLogin,
		StepAddProvider,
		StepGetProvider,
		StepSetAvailability,
		StepCreatePatient,
		StepGetPatient,
		StepGetAvailability,
		StepBookAppointment,
	}
}

// outcome is what a step hands back for recording. body overrides the raw
// response when the step has something more specific to show.
type outcome struct {
	resp *client.Response
	body interface{}
	note string
}

type step struct {
	name     string
	requires Phase
	leaves   Phase
	run      func(context.Context, *runContext) (outcome, error)
	// after runs between this step and the next, unrecorded.
	after func(context.Context, *runContext) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{name: StepLogin, requires: PhaseLoggedOut, leaves: PhaseLoggedIn, run: o.login},
		{name: StepAddProvider, requires: PhaseLoggedIn, leaves: PhaseProviderCreated, run: o.addProvider},
		{name: StepGetProvider, requires: PhaseProviderCreated, leaves: PhaseProviderResolved, run: o.getProvider},
		{name: StepSetAvailability, requires: PhaseProviderResolved, leaves: PhaseAvailabilitySet, run: o.setAvailability, after: o.settle},
		{name: StepCreatePatient, requires: PhaseAvailabilitySet, leaves: PhasePatientCreated, run: o.createPatient},
		{name: StepGetPatient, requires: PhasePatientCreated, leaves: PhasePatientResolved, run: o.getPatient},
		{name: StepGetAvailability, requires: PhasePatientResolved, leaves: PhaseAvailabilityFetched, run: o.getAvailability},
		{name: StepBookAppointment, requires: PhaseAvailabilityFetched, leaves: PhaseAppointmentBooked, run: o.bookAppointment},
	}
}

func expectStatus(resp *client.Response, want int) error {
	if resp.StatusCode != want {
		return apperrors.Validation("expected status %d, got %d", want, resp.StatusCode)
	}
	return nil
}

func expectMessage(resp *client.Response, want string) error {
	if !strings.Contains(resp.Message, want) {
		return apperrors.Validation("expected message containing %q, got %q", want, resp.Message)
	}
	return nil
}

func (o *Orchestrator) login(ctx context.Context, rc *runContext) (outcome, error) {
	resp, err := rc.client.Login(ctx, o.cfg.Username, o.cfg.Password)
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return out, err
	}
	var data model.LoginData
	if err := resp.Decode(&data); err != nil {
		return out, err
	}
	if data.AccessToken == "" {
		return out, apperrors.Validation("access_token missing from login response")
	}

	rc.state.AccessToken = data.AccessToken
	rc.client.SetToken(data.AccessToken)
	out.note = "Login successful, token received"
	return out, nil
}

func (o *Orchestrator) addProvider(ctx context.Context, rc *runContext) (outcome, error) {
	id := o.gen.Identity()
	if o.cfg.ProviderMailbox != "" {
		id.Email = datagen.PlusAddress(o.cfg.ProviderMailbox, o.gen.Tag("prov"))
	}

	resp, err := rc.client.CreateProvider(ctx, model.NewCreateProviderRequest(id))
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return out, err
	}
	if err := expectMessage(resp, model.MessageProviderCreated); err != nil {
		return out, err
	}

	rc.state.Provider = &model.ProviderRecord{Identity: id}
	out.note = fmt.Sprintf("Provider created: %s (%s)", id.FullName(), id.Email)
	return out, nil
}

func (o *Orchestrator) getProvider(ctx context.Context, rc *runContext) (outcome, error) {
	want := rc.state.Provider
	found, resp, err := lookup(ctx, o, "provider", rc.client.ListProviders, func(p model.ProviderSummary) bool {
		return want.Matches(p.FirstName, p.LastName, p.Email)
	})
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}

	want.UUID = found.UUID
	out.body = found
	out.note = "Provider found with UUID " + found.UUID
	return out, nil
}

func (o *Orchestrator) setAvailability(ctx context.Context, rc *runContext) (outcome, error) {
	slot, err := targetSlot(o.now(), o.cfg.Window, o.cfg.slotLength())
	if err != nil {
		return outcome{}, apperrors.Validation("cannot place target slot: %v", err)
	}

	p := rc.state.Provider
	resp, err := rc.client.SetAvailability(ctx, o.cfg.Window.Request(p.UUID, rc.client.Tenant()))
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return out, err
	}
	if err := expectMessage(resp, model.MessageAvailabilityAdded+" "+p.FullName()); err != nil {
		return out, err
	}

	rc.state.Slot = &slot
	out.note = fmt.Sprintf("Availability set for %s %s-%s %s, expecting slot %s UTC",
		tz.WeekdayName(o.cfg.Window.Day), o.cfg.Window.StartTime, o.cfg.Window.EndTime, o.cfg.Window.Timezone,
		slot.UTCStart.Format(time.RFC3339))
	return out, nil
}

func (o *Orchestrator) createPatient(ctx context.Context, rc *runContext) (outcome, error) {
	id := o.gen.Identity()
	birth := o.cfg.PatientBirth

	resp, err := rc.client.CreatePatient(ctx, model.NewCreatePatientRequest(id, birth, o.now()))
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return out, err
	}
	if err := expectMessage(resp, model.MessagePatientCreated); err != nil {
		return out, err
	}

	rc.state.Patient = &model.PatientRecord{Identity: id, BirthDate: birth}
	out.note = fmt.Sprintf("Patient created: %s (%s)", id.FullName(), id.Email)
	return out, nil
}

func (o *Orchestrator) getPatient(ctx context.Context, rc *runContext) (outcome, error) {
	want := rc.state.Patient
	list := func(ctx context.Context, page, size int) (*client.Response, error) {
		return rc.client.ListPatients(ctx, page, size, "")
	}
	found, resp, err := lookup(ctx, o, "patient", list, func(p model.PatientSummary) bool {
		return want.Matches(p.FirstName, p.LastName, p.Email)
	})
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}

	want.UUID = found.UUID
	out.body = found
	out.note = "Patient found with UUID " + found.UUID
	return out, nil
}

// getAvailability checks the stored weekly setting, then that the slot
// listing offers the target slot and that the slot reads back as the
// authored wall clock.
func (o *Orchestrator) getAvailability(ctx context.Context, rc *runContext) (outcome, error) {
	s := rc.state
	w := o.cfg.Window

	resp, err := rc.client.GetAvailability(ctx, s.Provider.UUID)
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return out, err
	}
	var setting model.AvailabilitySettingView
	if err := resp.Decode(&setting); err != nil {
		return out, err
	}
	if !hasDaySlot(setting, w) {
		return out, apperrors.Validation("stored availability has no %s %s-%s slot", tz.WeekdayName(w.Day), w.StartTime, w.EndTime)
	}

	resp, err = rc.client.ListSlots(ctx, s.Provider.UUID, s.Slot.Date, s.Slot.Zone.Name)
	out = outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return out, err
	}
	var slots []model.Slot
	if err := resp.Decode(&slots); err != nil {
		return out, err
	}
	s.Slots = slots

	found := findSlot(slots, s.Slot.UTCStart, s.Slot.UTCEnd)
	if found == nil {
		return out, apperrors.Validation("slot %s-%s UTC not offered on %s (%d slots listed)",
			s.Slot.UTCStart.Format("15:04"), s.Slot.UTCEnd.Format("15:04"), s.Slot.Date, len(slots))
	}
	day, clock := s.Slot.Zone.ToLocal(found.StartTime)
	if day != s.Slot.Date || clock != tz.MustParseClock(w.StartTime) {
		return out, apperrors.Validation("slot %s reads back as %s %s %s, expected %s %s",
			found.StartTime.Format(time.RFC3339), day, clock, s.Slot.Zone.Name, s.Slot.Date, w.StartTime)
	}

	out.note = fmt.Sprintf("Slot %s %s %s (%s UTC) is offered",
		s.Slot.Date, w.StartTime, s.Slot.Zone.Name, found.StartTime.Format("15:04"))
	return out, nil
}

func (o *Orchestrator) bookAppointment(ctx context.Context, rc *runContext) (outcome, error) {
	s := rc.state
	req := model.AppointmentRequest{
		Mode:           o.cfg.Window.Mode,
		PatientID:      s.Patient.UUID,
		ProviderID:     s.Provider.UUID,
		Type:           model.ConsultNew,
		PaymentType:    "CASH",
		StartTime:      s.Slot.UTCStart,
		EndTime:        s.Slot.UTCEnd,
		Timezone:       s.Slot.Zone.Name,
		Duration:       o.cfg.Window.SlotMinutes,
		ChiefComplaint: "Automated scheduling check",
		TenantID:       rc.client.Tenant(),
	}

	resp, err := rc.client.BookAppointment(ctx, req)
	out := outcome{resp: resp}
	if err != nil {
		return out, err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return out, err
	}
	if err := expectMessage(resp, model.MessageAppointmentBooked); err != nil {
		return out, err
	}

	booking := &model.Booking{
		ProviderUUID: s.Provider.UUID,
		PatientUUID:  s.Patient.UUID,
		StartUTC:     s.Slot.UTCStart,
		EndUTC:       s.Slot.UTCEnd,
	}
	var data model.AppointmentData
	if resp.Decode(&data) == nil {
		booking.UUID = data.UUID
	}
	s.Booking = booking
	out.note = fmt.Sprintf("Appointment booked for %s", s.Slot.UTCStart.Format(time.RFC3339))
	return out, nil
}

// targetSlot places the first slot of w on the next occurrence of w.Day in
// w's zone, strictly after today there.
func targetSlot(now time.Time, w model.AvailabilityWindow, length time.Duration) (tz.Window, error) {
	zone, err := tz.Lookup(w.Timezone)
	if err != nil {
		return tz.Window{}, err
	}
	start, err := tz.ParseClock(w.StartTime)
	if err != nil {
		return tz.Window{}, err
	}
	day := tz.NextWeekday(now.In(zone.Location()), w.Day)
	_, end := zone.ToLocal(zone.ToUTC(day, start).Add(length))
	return tz.NewWindow(zone, day, start, end)
}

func hasDaySlot(setting model.AvailabilitySettingView, w model.AvailabilityWindow) bool {
	for _, ds := range setting.DaySlots {
		if !strings.EqualFold(ds.Day, tz.WeekdayName(w.Day)) {
			continue
		}
		start, errS := tz.ParseClock(ds.StartTime)
		end, errE := tz.ParseClock(ds.EndTime)
		if errS == nil && errE == nil && start == tz.MustParseClock(w.StartTime) && end == tz.MustParseClock(w.EndTime) {
			return true
		}
	}
	return false
}
