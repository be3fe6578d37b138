package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// All repository interfaces in one file. Every call is scoped to a tenant.
// Listings only return records the search index has caught up with; direct
// Get calls see a record as soon as it is created.
type (
	ProviderRepository interface {
		Create(ctx context.Context, tenant string, provider *model.ProviderSummary) error
		Get(ctx context.Context, tenant, id string) (*model.ProviderSummary, error)
		List(ctx context.Context, tenant string, page, size int) (model.Page[model.ProviderSummary], error)
	}

	PatientRepository interface {
		Create(ctx context.Context, tenant string, patient *model.PatientSummary) error
		Get(ctx context.Context, tenant, id string) (*model.PatientSummary, error)
		List(ctx context.Context, tenant string, page, size int, search string) (model.Page[model.PatientSummary], error)
	}

	AvailabilityRepository interface {
		Put(ctx context.Context, tenant string, setting *model.AvailabilitySettingView) error
		// Get returns ErrNotFound until the setting has been indexed.
		Get(ctx context.Context, tenant, providerID string) (*model.AvailabilitySettingView, error)
	}

	AppointmentRepository interface {
		// Create fails with ErrDuplicate when the provider already has a booking at the same start.
		Create(ctx context.Context, tenant string, appointment *model.AppointmentData) error
		BookedStarts(ctx context.Context, tenant, providerID string, from, to time.Time) (map[int64]struct{}, error)
	}
)
