package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
	"github.com/jwalitptl/ecare-e2e/internal/service"
	"github.com/jwalitptl/ecare-e2e/internal/service/availability"
)

const StatusScheduled = "SCHEDULED"

type Service struct {
	repo         repository.AppointmentRepository
	providers    repository.ProviderRepository
	patients     repository.PatientRepository
	availability *availability.Service
}

func NewService(
	repo repository.AppointmentRepository,
	providers repository.ProviderRepository,
	patients repository.PatientRepository,
	availability *availability.Service,
) *Service {
	return &Service{
		repo:         repo,
		providers:    providers,
		patients:     patients,
		availability: availability,
	}
}

// BookAppointment books a free slot of the provider for the patient.
func (s *Service) BookAppointment(ctx context.Context, tenant string, req *model.AppointmentRequest) (*model.AppointmentData, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", service.ErrInvalidInput)
	}
	if _, err := s.providers.Get(ctx, tenant, req.ProviderID); err != nil {
		return nil, notFound(err, "provider", req.ProviderID)
	}
	if _, err := s.patients.Get(ctx, tenant, req.PatientID); err != nil {
		return nil, notFound(err, "patient", req.PatientID)
	}

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	offered, err := s.availability.IsOffered(ctx, tenant, req.ProviderID, start, end)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, fmt.Errorf("%w: slot %s is not available", service.ErrConflict, start.Format("2006-01-02T15:04Z"))
	}

	appt := &model.AppointmentData{
		UUID:       uuid.NewString(),
		ProviderID: req.ProviderID,
		PatientID:  req.PatientID,
		StartTime:  start,
		EndTime:    end,
		Status:     StatusScheduled,
	}
	if err := s.repo.Create(ctx, tenant, appt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: slot already booked", service.ErrConflict)
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}
	return appt, nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", service.ErrNotFound, kind, id)
	}
	return err
}
