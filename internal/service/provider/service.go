package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
	"github.com/jwalitptl/ecare-e2e/internal/service"
)

type Service struct {
	repo repository.ProviderRepository
}

func NewService(repo repository.ProviderRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateProvider(ctx context.Context, tenant string, req *model.CreateProviderRequest) (*model.ProviderSummary, error) {
	if req.Role != model.RoleProvider {
		return nil, fmt.Errorf("%w: unsupported role %q", service.ErrInvalidInput, req.Role)
	}

	p := &model.ProviderSummary{
		UUID:      uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
		Gender:    req.Gender,
		Active:    req.Active,
	}
	if err := s.repo.Create(ctx, tenant, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s is already registered", service.ErrConflict, req.Email)
		}
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return p, nil
}

func (s *Service) GetProvider(ctx context.Context, tenant, id string) (*model.ProviderSummary, error) {
	p, err := s.repo.Get(ctx, tenant, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: provider %s", service.ErrNotFound, id)
	}
	return p, err
}

func (s *Service) ListProviders(ctx context.Context, tenant string, page, size int) (model.Page[model.ProviderSummary], error) {
	return s.repo.List(ctx, tenant, page, size)
}
