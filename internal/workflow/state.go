package workflow

import (
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
)

// Phase is how far a run has progressed. Each step requires the phase the
// previous step leaves behind.
type Phase int

const (
	PhaseLoggedOut Phase = iota
	PhaseLoggedIn
	PhaseProviderCreated
	PhaseProviderResolved
	PhaseAvailabilitySet
	PhasePatientCreated
	PhasePatientResolved
	PhaseAvailabilityFetched
	PhaseAppointmentBooked
)

var phaseNames = [...]string{
	"LoggedOut",
	"LoggedIn",
	"ProviderCreated",
	"ProviderResolved",
	"AvailabilitySet",
	"PatientCreated",
	"PatientResolved",
	"AvailabilityFetched",
	"AppointmentBooked",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// State is everything one run has learned so far. It is owned by the run
// and never shared.
type State struct {
	RunID       string
	// TraceID is empty when no tracer provider is installed.
	TraceID     string
	Phase       Phase
	AccessToken string

	Provider *model.ProviderRecord
	Patient  *model.PatientRecord

	Availability model.AvailabilityWindow
	// Slot is the slot the run expects to see offered and then books.
	Slot  *tz.Window
	Slots []model.Slot

	Booking *model.Booking
}
