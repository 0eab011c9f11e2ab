package service

import (
	"context"
	"errors"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/database"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/events"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/metrics"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/worker"

	"github.com/rs/zerolog"
)

// BookingService drives the booking transaction through the retry policy and
// publishes lifecycle events. Correctness lives entirely in the repository's
// locking transaction; this layer only classifies outcomes and retries
// transient infrastructure failures.
type BookingService struct {
	repo     domain.BookingRepository
	eventBus domain.EventPublisher
	retry    worker.RetryPolicy
	loc      *time.Location
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.BookingRepository, eventBus domain.EventPublisher, retry worker.RetryPolicy, loc *time.Location, logger *zerolog.Logger) *BookingService {
	if loc == nil {
		loc = time.Local
	}
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		retry:    retry,
		loc:      loc,
		logger:   logger,
	}
}

// CreateFromSlot books the given slot for a customer. Deterministic failures
// (past slot, conflict) surface immediately; transient store failures are
// retried with backoff before giving up with *worker.ExhaustedError.
func (s *BookingService) CreateFromSlot(ctx context.Context, slot models.TimeSlot, customerRef string) (*models.Booking, error) {
	start, err := slot.Start(s.loc)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(slot.DurationMinutes) * time.Minute)

	began := time.Now()
	attempts := 0
	booking, err := worker.Do(ctx, s.retry, func(ctx context.Context) (*models.Booking, error) {
		attempts++
		if attempts > 1 {
			metrics.IncRetry()
		}
		b := &models.Booking{
			ResourceID:  slot.ResourceID,
			ServiceID:   slot.ServiceID,
			StartAt:     start,
			EndAt:       end,
			Status:      models.StatusPending,
			CustomerRef: customerRef,
		}
		if err := s.repo.CreateBookingWithLock(ctx, b); err != nil {
			return nil, err
		}
		return b, nil
	})
	metrics.ObserveBookingDuration(time.Since(began).Seconds())

	if err != nil {
		s.recordFailure(slot, customerRef, attempts, err)
		return nil, err
	}

	metrics.IncBookingAttempt("created")
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("resource_id", booking.ResourceID).
		Time("start_at", booking.StartAt).
		Int("attempts", attempts).
		Msg("booking created")

	_ = s.eventBus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		BookingID:   booking.ID,
		ResourceID:  booking.ResourceID,
		ServiceID:   booking.ServiceID,
		StartAt:     booking.StartAt,
		EndAt:       booking.EndAt,
		Status:      booking.Status,
		Code:        booking.Code,
		CustomerRef: booking.CustomerRef,
		Attempts:    attempts,
	})

	return booking, nil
}

func (s *BookingService) recordFailure(slot models.TimeSlot, customerRef string, attempts int, err error) {
	log := s.logger.Warn().
		Str("resource_id", slot.ResourceID).
		Str("date", slot.Date).
		Str("time", slot.Time).
		Str("customer_ref", customerRef).
		Int("attempts", attempts).
		Err(err)

	var exhausted *worker.ExhaustedError
	switch {
	case errors.Is(err, database.ErrSlotConflict):
		metrics.IncBookingAttempt("conflict")
		log.Msg("booking conflict")
		_ = s.eventBus.PublishJSON(events.EventBookingConflict, events.BookingEventPayload{
			ResourceID: slot.ResourceID,
			ServiceID:  slot.ServiceID,
			Attempts:   attempts,
		})
	case errors.Is(err, database.ErrPastSlot):
		metrics.IncBookingAttempt("past_slot")
		log.Msg("booking rejected: past slot")
	case errors.As(err, &exhausted):
		metrics.IncBookingAttempt("exhausted")
		log.Msg("booking retries exhausted")
	default:
		metrics.IncBookingAttempt("error")
		log.Msg("booking failed")
	}
}

// Confirm moves a pending booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, models.StatusConfirmed); err != nil {
		return nil, err
	}
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	_ = s.eventBus.PublishJSON(events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID:  booking.ID,
		ResourceID: booking.ResourceID,
		ServiceID:  booking.ServiceID,
		StartAt:    booking.StartAt,
		EndAt:      booking.EndAt,
		Status:     booking.Status,
		Code:       booking.Code,
	})
	return booking, nil
}

// Cancel releases a booking's interval.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled); err != nil {
		return err
	}
	_ = s.eventBus.PublishJSON(events.EventBookingCancelled, events.BookingEventPayload{
		BookingID: bookingID,
		Status:    models.StatusCancelled,
	})
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetService(ctx context.Context, id string) (*models.Service, error) {
	return s.repo.GetService(ctx, id)
}
