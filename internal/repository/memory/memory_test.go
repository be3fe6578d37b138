package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/repository"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProviderListingLagsBehindCreate(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	db := NewDB(Config{IndexDelay: 2 * time.Second, Now: clock.Now})
	repo := NewProviderRepository(db)

	p := &model.ProviderSummary{UUID: "p-1", FirstName: "AutoFNabcdef", LastName: "Smith", Email: "a@example.com"}
	require.NoError(t, repo.Create(ctx, "tenant", p))

	got, err := repo.Get(ctx, "tenant", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Smith", got.LastName)

	page, err := repo.List(ctx, "tenant", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Content)

	clock.Advance(2 * time.Second)
	page, err = repo.List(ctx, "tenant", 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "p-1", page.Content[0].UUID)

	_, err = repo.List(ctx, "other-tenant", 0, 20)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, "tenant", p), repository.ErrDuplicate)
}

func TestPaginationNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := NewDB(Config{})
	repo := NewPatientRepository(db)

	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Create(ctx, "t", &model.PatientSummary{
			UUID:      fmt.Sprintf("pt-%02d", i),
			FirstName: fmt.Sprintf("First%02d", i),
			LastName:  "Jones",
			Email:     fmt.Sprintf("pt%02d@example.com", i),
		}))
	}

	first, err := repo.List(ctx, "t", 0, 20, "")
	require.NoError(t, err)
	assert.Len(t, first.Content, 20)
	assert.Equal(t, "pt-24", first.Content[0].UUID)
	assert.Equal(t, 25, first.TotalElements)
	assert.Equal(t, 2, first.TotalPages)
	assert.False(t, first.Last())

	second, err := repo.List(ctx, "t", 1, 20, "")
	require.NoError(t, err)
	assert.Len(t, second.Content, 5)
	assert.True(t, second.Last())

	searched, err := repo.List(ctx, "t", 0, 20, "first07 jones")
	require.NoError(t, err)
	require.Len(t, searched.Content, 1)
	assert.Equal(t, "pt-07", searched.Content[0].UUID)
}

func TestAvailabilityVisibility(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	db := NewDB(Config{IndexDelay: time.Second, Now: clock.Now})
	repo := NewAvailabilityRepository(db)

	require.NoError(t, repo.Put(ctx, "t", &model.AvailabilitySettingView{ProviderID: "p-1", Timezone: "EST"}))
	_, err := repo.Get(ctx, "t", "p-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	clock.Advance(time.Second)
	got, err := repo.Get(ctx, "t", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "EST", got.Timezone)
}

func TestAppointmentsRejectDoubleBooking(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepository(NewDB(Config{}))
	start := time.Date(2026, time.October, 19, 17, 0, 0, 0, time.UTC)

	a := &model.AppointmentData{UUID: "a-1", ProviderID: "p-1", PatientID: "pt-1", StartTime: start, EndTime: start.Add(30 * time.Minute)}
	require.NoError(t, repo.Create(ctx, "t", a))

	b := *a
	b.UUID = "a-2"
	assert.ErrorIs(t, repo.Create(ctx, "t", &b), repository.ErrDuplicate)

	booked, err := repo.BookedStarts(ctx, "t", "p-1", start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, booked, start.Unix())
}
