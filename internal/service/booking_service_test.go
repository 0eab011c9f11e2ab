package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/database"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/events"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/worker"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBookingRepo is an in-memory BookingRepository with scriptable failures
// on the create path.
type fakeBookingRepo struct {
	bookings    map[string]*models.Booking
	resources   map[string]*models.Resource
	services    map[string]*models.Service
	createErrs  []error // consumed one per CreateBookingWithLock call
	createCalls int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[string]*models.Booking),
		resources: map[string]*models.Resource{
			"master-anna": {ID: "master-anna", DisplayName: "Anna", IsActive: true},
		},
		services: map[string]*models.Service{
			"haircut": {ID: "haircut", Name: "Haircut", DurationMinutes: 60, Price: 50, IsActive: true},
		},
	}
}

func (f *fakeBookingRepo) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	booking.ID = uuid.NewString()
	booking.Code = "ABC123"
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, database.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookingRepo) UpdateBookingStatus(ctx context.Context, id string, status string) error {
	b, ok := f.bookings[id]
	if !ok {
		return database.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeBookingRepo) GetBookingsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range f.bookings {
		if b.ResourceID == resourceID && b.StartAt.Before(to) && b.EndAt.After(from) &&
			b.Status != models.StatusCancelled && b.Status != models.StatusNoShow {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) CountActiveForResource(ctx context.Context, resourceID string) (int, error) {
	bookings, _ := f.GetBookingsInRange(ctx, resourceID, time.Time{}, time.Now().AddDate(1, 0, 0))
	return len(bookings), nil
}

func (f *fakeBookingRepo) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	r, ok := f.resources[id]
	if !ok {
		return nil, database.ErrResourceNotFound
	}
	return r, nil
}

func (f *fakeBookingRepo) ListActiveResources(ctx context.Context) ([]*models.Resource, error) {
	var out []*models.Resource
	for _, r := range f.resources {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) GetService(ctx context.Context, id string) (*models.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, errors.New("service not found")
	}
	return s, nil
}

func newServiceUnderTest(repo *fakeBookingRepo, bus *events.EventBus) *BookingService {
	logger := zerolog.Nop()
	policy := worker.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2}
	return NewBookingService(repo, bus, policy, time.UTC, &logger)
}

func recordedEvents(bus *events.EventBus, types ...string) *[]string {
	var got []string
	for _, eventType := range types {
		eventType := eventType
		bus.Subscribe(eventType, func(event *events.Event) error {
			got = append(got, eventType)
			return nil
		})
	}
	return &got
}

func futureSlot() models.TimeSlot {
	start := time.Now().Add(24 * time.Hour)
	return models.TimeSlot{
		Date:            start.Format(models.SlotDateLayout),
		Time:            start.Format(models.SlotTimeLayout),
		ResourceID:      "master-anna",
		ServiceID:       "haircut",
		DurationMinutes: 60,
	}
}

func TestCreateFromSlot(t *testing.T) {
	repo := newFakeBookingRepo()
	bus := events.NewEventBus()
	published := recordedEvents(bus, events.EventBookingCreated)
	svc := newServiceUnderTest(repo, bus)

	booking, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	require.NoError(t, err)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, "wa:15550001", booking.CustomerRef)
	assert.Equal(t, booking.StartAt.Add(time.Hour), booking.EndAt)
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, []string{events.EventBookingCreated}, *published)
}

func TestCreateFromSlotConflictNotRetried(t *testing.T) {
	repo := newFakeBookingRepo()
	repo.createErrs = []error{database.ErrSlotConflict}
	bus := events.NewEventBus()
	published := recordedEvents(bus, events.EventBookingConflict)
	svc := newServiceUnderTest(repo, bus)

	_, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	assert.ErrorIs(t, err, database.ErrSlotConflict)
	assert.Equal(t, 1, repo.createCalls, "conflicts are deterministic and must not be retried")
	assert.Equal(t, []string{events.EventBookingConflict}, *published)
}

func TestCreateFromSlotPastSlotNotRetried(t *testing.T) {
	repo := newFakeBookingRepo()
	repo.createErrs = []error{database.ErrPastSlot}
	svc := newServiceUnderTest(repo, events.NewEventBus())

	_, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	assert.ErrorIs(t, err, database.ErrPastSlot)
	assert.Equal(t, 1, repo.createCalls)
}

func TestCreateFromSlotRetriesTransientFailures(t *testing.T) {
	repo := newFakeBookingRepo()
	repo.createErrs = []error{
		sqlite3.Error{Code: sqlite3.ErrBusy},
		sqlite3.Error{Code: sqlite3.ErrLocked},
		nil,
	}
	svc := newServiceUnderTest(repo, events.NewEventBus())

	booking, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, 3, repo.createCalls)
}

func TestCreateFromSlotExhaustsRetries(t *testing.T) {
	repo := newFakeBookingRepo()
	repo.createErrs = []error{
		sqlite3.Error{Code: sqlite3.ErrBusy},
		sqlite3.Error{Code: sqlite3.ErrBusy},
		sqlite3.Error{Code: sqlite3.ErrBusy},
	}
	svc := newServiceUnderTest(repo, events.NewEventBus())

	_, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	require.Error(t, err)

	var exhausted *worker.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, repo.createCalls)
}

func TestConfirm(t *testing.T) {
	repo := newFakeBookingRepo()
	bus := events.NewEventBus()
	published := recordedEvents(bus, events.EventBookingConfirmed)
	svc := newServiceUnderTest(repo, bus)

	booking, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.Equal(t, []string{events.EventBookingConfirmed}, *published)

	_, err = svc.Confirm(context.Background(), "missing-id")
	assert.ErrorIs(t, err, database.ErrBookingNotFound)
}

func TestCancel(t *testing.T) {
	repo := newFakeBookingRepo()
	bus := events.NewEventBus()
	published := recordedEvents(bus, events.EventBookingCancelled)
	svc := newServiceUnderTest(repo, bus)

	booking, err := svc.CreateFromSlot(context.Background(), futureSlot(), "wa:15550001")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), booking.ID))
	got, err := svc.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, []string{events.EventBookingCancelled}, *published)
}
