package service

import (
	"context"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/rs/zerolog"
)

// SessionService wraps the session repository with bookkeeping: timestamps on
// write (each save refreshes the TTL) and logging on read errors.
type SessionService struct {
	repo   domain.SessionRepository
	logger *zerolog.Logger
}

func NewSessionService(repo domain.SessionRepository, logger *zerolog.Logger) *SessionService {
	return &SessionService{repo: repo, logger: logger}
}

func (s *SessionService) GetSession(ctx context.Context, customerID string) (*models.SessionState, error) {
	session, err := s.repo.GetSession(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to get session")
		return nil, err
	}
	return session, nil
}

func (s *SessionService) SaveSession(ctx context.Context, session *models.SessionState) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	return s.repo.SetSession(ctx, session)
}

func (s *SessionService) ClearSession(ctx context.Context, customerID string) error {
	return s.repo.ClearSession(ctx, customerID)
}

func (s *SessionService) CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error) {
	return s.repo.CheckRateLimit(ctx, customerID, limit, window)
}
