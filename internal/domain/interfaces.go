package domain

import (
	"context"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/wa"
)

type BookingRepository interface {
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status string) error
	GetBookingsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]*models.Booking, error)
	CountActiveForResource(ctx context.Context, resourceID string) (int, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListActiveResources(ctx context.Context) ([]*models.Resource, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
}

type SessionRepository interface {
	GetSession(ctx context.Context, customerID string) (*models.SessionState, error)
	SetSession(ctx context.Context, session *models.SessionState) error
	ClearSession(ctx context.Context, customerID string) error
	CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error)
}

// SlotSource is the external catalog collaborator that proposes candidate
// slots for a structured query. Candidates are advisory; the booking
// transaction is the only authority on availability.
type SlotSource interface {
	FindSlots(ctx context.Context, query models.SlotQuery) ([]models.TimeSlot, error)
}

// MessageSender delivers an outbound interactive message to a customer.
// Delivery guarantees are out of scope; errors are logged, not retried here.
type MessageSender interface {
	Send(ctx context.Context, to string, msg *wa.OutboundMessage) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SessionManager interface {
	GetSession(ctx context.Context, customerID string) (*models.SessionState, error)
	SaveSession(ctx context.Context, session *models.SessionState) error
	ClearSession(ctx context.Context, customerID string) error
	CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error)
}
