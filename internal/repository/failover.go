package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/rs/zerolog"
)

// recoveryProbeInterval bounds how often we re-try a primary marked down.
const recoveryProbeInterval = time.Minute

// FailoverSessionRepository prefers the primary (Redis) store and falls back
// to the in-memory one when it errors, probing the primary periodically to
// recover.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nano of the last failed probe
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryProbeInterval
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, customerID string) (*models.SessionState, error) {
	if !r.isDown.Load() {
		session, err := r.primary.GetSession(ctx, customerID)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		session, err := r.primary.GetSession(ctx, customerID)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetSession(ctx, customerID)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *models.SessionState) error {
	if !r.isDown.Load() {
		err := r.primary.SetSession(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, customerID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearSession(ctx, customerID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearSession(ctx, customerID)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, customerID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, customerID, limit, window)
}
