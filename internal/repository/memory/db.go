// Package memory is the sandbox's in-process storage. It imitates the search
// index lag of the real product: new records become visible in listings only
// after IndexDelay.
package memory

import (
	"sync"
	"time"

	"github.com/jwalitptl/ecare-e2e/internal/model"
)

// Config holds storage configuration
type Config struct {
	IndexDelay time.Duration
	Now        func() time.Time
}

type row[T any] struct {
	value     T
	createdAt time.Time
	visibleAt time.Time
}

type tenantData struct {
	providers    []row[model.ProviderSummary]
	patients     []row[model.PatientSummary]
	availability map[string]row[model.AvailabilitySettingView]
	appointments []model.AppointmentData
}

// DB is a tenant-partitioned in-memory database shared by the repositories.
type DB struct {
	mu         sync.RWMutex
	tenants    map[string]*tenantData
	indexDelay time.Duration
	now        func() time.Time
}

func NewDB(cfg Config) *DB {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &DB{
		tenants:    make(map[string]*tenantData),
		indexDelay: cfg.IndexDelay,
		now:        now,
	}
}

// tenant returns the partition for name, creating it. Callers hold mu for writing.
func (db *DB) tenant(name string) *tenantData {
	t, ok := db.tenants[name]
	if !ok {
		t = &tenantData{availability: make(map[string]row[model.AvailabilitySettingView])}
		db.tenants[name] = t
	}
	return t
}

// lookup returns the partition for name or nil. Callers hold mu for reading.
func (db *DB) lookup(name string) *tenantData {
	return db.tenants[name]
}

func newRow[T any](db *DB, v T) row[T] {
	now := db.now()
	return row[T]{value: v, createdAt: now, visibleAt: now.Add(db.indexDelay)}
}

func (r row[T]) visible(now time.Time) bool {
	return !now.Before(r.visibleAt)
}

// paginate returns page of size from items, newest first.
func paginate[T any](items []T, page, size int) model.Page[T] {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	content := []T{}
	start := page * size
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		content = items[start:end]
	}
	return model.Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        page,
		Size:          size,
	}
}
