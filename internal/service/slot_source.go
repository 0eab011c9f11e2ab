package service

import (
	"context"
	"fmt"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/config"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

// ScheduleSlotSource proposes candidate slots by walking the working-hours
// grid and skipping intervals already blocked in the booking store. The
// candidates are advisory: the booking transaction re-checks under the
// resource lock, so a stale candidate costs a conflict, never a double
// booking.
type ScheduleSlotSource struct {
	repo       domain.BookingRepository
	loc        *time.Location
	now        func() time.Time
	dayStart   string
	dayEnd     string
	searchDays int
}

func NewScheduleSlotSource(repo domain.BookingRepository, cfg config.BookingConfig, loc *time.Location, now func() time.Time) *ScheduleSlotSource {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleSlotSource{
		repo:       repo,
		loc:        loc,
		now:        now,
		dayStart:   cfg.WorkdayStart,
		dayEnd:     cfg.WorkdayEnd,
		searchDays: cfg.SearchDays,
	}
}

func (s *ScheduleSlotSource) FindSlots(ctx context.Context, query models.SlotQuery) ([]models.TimeSlot, error) {
	svc, err := s.repo.GetService(ctx, query.ServiceID)
	if err != nil {
		return nil, err
	}

	var resources []*models.Resource
	if query.ResourceID != "" {
		resource, err := s.repo.GetResource(ctx, query.ResourceID)
		if err != nil {
			return nil, err
		}
		resources = []*models.Resource{resource}
	} else {
		resources, err = s.repo.ListActiveResources(ctx)
		if err != nil {
			return nil, err
		}
	}

	firstDay := s.now().In(s.loc)
	days := s.searchDays
	if query.PreferredDate != "" {
		preferred, err := time.ParseInLocation(models.SlotDateLayout, query.PreferredDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("invalid preferred date %q: %w", query.PreferredDate, err)
		}
		firstDay = preferred
		days = 1
	}

	var slots []models.TimeSlot
	for dayOffset := 0; dayOffset < days && len(slots) < models.MaxPresentedSlots; dayOffset++ {
		day := firstDay.AddDate(0, 0, dayOffset)
		for _, resource := range resources {
			daySlots, err := s.slotsForDay(ctx, resource.ID, svc, day, query.PreferredTime)
			if err != nil {
				return nil, err
			}
			slots = append(slots, daySlots...)
			if len(slots) >= models.MaxPresentedSlots {
				break
			}
		}
	}

	if len(slots) > models.MaxPresentedSlots {
		slots = slots[:models.MaxPresentedSlots]
	}
	return slots, nil
}

func (s *ScheduleSlotSource) slotsForDay(ctx context.Context, resourceID string, svc *models.Service, day time.Time, preferredTime string) ([]models.TimeSlot, error) {
	open, err := s.wallClock(day, s.dayStart)
	if err != nil {
		return nil, err
	}
	close, err := s.wallClock(day, s.dayEnd)
	if err != nil {
		return nil, err
	}

	busy, err := s.repo.GetBookingsInRange(ctx, resourceID, open, close)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(svc.DurationMinutes) * time.Minute
	now := s.now()

	var slots []models.TimeSlot
	for start := open; !start.Add(duration).After(close); start = start.Add(duration) {
		if start.Before(now) {
			continue
		}
		if overlapsAny(busy, start, start.Add(duration)) {
			continue
		}
		clock := start.Format(models.SlotTimeLayout)
		slots = append(slots, models.TimeSlot{
			Date:            start.Format(models.SlotDateLayout),
			Time:            clock,
			ResourceID:      resourceID,
			ServiceID:       svc.ID,
			DurationMinutes: svc.DurationMinutes,
			Price:           svc.Price,
			IsPreferred:     preferredTime != "" && clock == preferredTime,
		})
	}
	return slots, nil
}

func (s *ScheduleSlotSource) wallClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(models.SlotTimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid workday time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, s.loc), nil
}

func overlapsAny(bookings []*models.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.StartAt.Before(end) && b.EndAt.After(start) {
			return true
		}
	}
	return false
}
