package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
	"github.com/jwalitptl/ecare-e2e/internal/service"
)

type Service struct {
	repo repository.PatientRepository
	now  func() time.Time
}

func NewService(repo repository.PatientRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

func (s *Service) CreatePatient(ctx context.Context, tenant string, req *model.CreatePatientRequest) (*model.PatientSummary, error) {
	if req.BirthDate.After(s.now()) {
		return nil, fmt.Errorf("%w: birth date is in the future", service.ErrInvalidInput)
	}
	if !req.EmailNotAvailable && req.Email == "" {
		return nil, fmt.Errorf("%w: email is required unless marked not available", service.ErrInvalidInput)
	}

	p := &model.PatientSummary{
		UUID:         uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Gender:       req.Gender,
		BirthDate:    req.BirthDate.Format(time.DateOnly),
	}
	if err := s.repo.Create(ctx, tenant, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, tenant, id string) (*model.PatientSummary, error) {
	p, err := s.repo.Get(ctx, tenant, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: patient %s", service.ErrNotFound, id)
	}
	return p, err
}

func (s *Service) ListPatients(ctx context.Context, tenant string, page, size int, search string) (model.Page[model.PatientSummary], error) {
	return s.repo.List(ctx, tenant, page, size, search)
}
