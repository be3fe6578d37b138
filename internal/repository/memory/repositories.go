package memory

import (
	"context"
	"strings"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
)

type providerRepository struct {
	db *DB
}

func NewProviderRepository(db *DB) repository.ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, tenant string, provider *model.ProviderSummary) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := r.db.tenant(tenant)
	for _, p := range t.providers {
		if strings.EqualFold(p.value.Email, provider.Email) {
			return repository.ErrDuplicate
		}
	}
	t.providers = append(t.providers, newRow(r.db, *provider))
	return nil
}

func (r *providerRepository) Get(ctx context.Context, tenant, id string) (*model.ProviderSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if t := r.db.lookup(tenant); t != nil {
		for _, p := range t.providers {
			if p.value.UUID == id {
				v := p.value
				return &v, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *providerRepository) List(ctx context.Context, tenant string, page, size int) (model.Page[model.ProviderSummary], error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var items []model.ProviderSummary
	if t := r.db.lookup(tenant); t != nil {
		now := r.db.now()
		for i := len(t.providers) - 1; i >= 0; i-- {
			if t.providers[i].visible(now) {
				items = append(items, t.providers[i].value)
			}
		}
	}
	return paginate(items, page, size), nil
}

type patientRepository struct {
	db *DB
}

func NewPatientRepository(db *DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, tenant string, patient *model.PatientSummary) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := r.db.tenant(tenant)
	t.patients = append(t.patients, newRow(r.db, *patient))
	return nil
}

func (r *patientRepository) Get(ctx context.Context, tenant, id string) (*model.PatientSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if t := r.db.lookup(tenant); t != nil {
		for _, p := range t.patients {
			if p.value.UUID == id {
				v := p.value
				return &v, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepository) List(ctx context.Context, tenant string, page, size int, search string) (model.Page[model.PatientSummary], error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var items []model.PatientSummary
	if t := r.db.lookup(tenant); t != nil {
		now := r.db.now()
		for i := len(t.patients) - 1; i >= 0; i-- {
			p := t.patients[i]
			if !p.visible(now) {
				continue
			}
			if search != "" && !matchesSearch(p.value, search) {
				continue
			}
			items = append(items, p.value)
		}
	}
	return paginate(items, page, size), nil
}

func matchesSearch(p model.PatientSummary, search string) bool {
	full := strings.ToLower(p.FirstName + " " + p.LastName)
	return strings.Contains(full, search) || strings.Contains(strings.ToLower(p.Email), search)
}

type availabilityRepository struct {
	db *DB
}

func NewAvailabilityRepository(db *DB) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func (r *availabilityRepository) Put(ctx context.Context, tenant string, setting *model.AvailabilitySettingView) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.tenant(tenant).availability[setting.ProviderID] = newRow(r.db, *setting)
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, tenant, providerID string) (*model.AvailabilitySettingView, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t := r.db.lookup(tenant)
	if t == nil {
		return nil, repository.ErrNotFound
	}
	stored, ok := t.availability[providerID]
	if !ok || !stored.visible(r.db.now()) {
		return nil, repository.ErrNotFound
	}
	v := stored.value
	return &v, nil
}

type appointmentRepository struct {
	db *DB
}

func NewAppointmentRepository(db *DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, tenant string, appointment *model.AppointmentData) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := r.db.tenant(tenant)
	for _, a := range t.appointments {
		if a.ProviderID == appointment.ProviderID && a.StartTime.Equal(appointment.StartTime) {
			return repository.ErrDuplicate
		}
	}
	t.appointments = append(t.appointments, *appointment)
	return nil
}

func (r *appointmentRepository) BookedStarts(ctx context.Context, tenant, providerID string, from, to time.Time) (map[int64]struct{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	booked := make(map[int64]struct{})
	if t := r.db.lookup(tenant); t != nil {
		for _, a := range t.appointments {
			if a.ProviderID != providerID || a.StartTime.Before(from) || !a.StartTime.Before(to) {
				continue
			}
			booked[a.StartTime.Unix()] = struct{}{}
		}
	}
	return booked, nil
}
