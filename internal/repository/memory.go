package repository

import (
	"context"
	"sync"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

// MemorySessionRepository is the fallback session store used when Redis is
// unreachable. Entries carry an explicit deadline; a periodic sweep reclaims
// expired sessions so an abandoned conversation is gone after the TTL either
// way.
type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	sweepEvery time.Duration
}

type sessionEntry struct {
	session   *models.SessionState
	expiresAt time.Time
}

func NewMemorySessionRepository(ttl, sweepEvery time.Duration) *MemorySessionRepository {
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	if sweepEvery <= 0 {
		sweepEvery = models.DefaultSessionSweepInterval
	}
	return &MemorySessionRepository{ttl: ttl, sweepEvery: sweepEvery}
}

// StartSweeper runs the expiry sweep until ctx is cancelled.
func (r *MemorySessionRepository) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(time.Now())
		}
	}
}

// Sweep drops every entry whose deadline passed.
func (r *MemorySessionRepository) Sweep(now time.Time) {
	r.sessions.Range(func(key, val any) bool {
		if entry, ok := val.(*sessionEntry); ok && now.After(entry.expiresAt) {
			r.sessions.Delete(key)
		}
		return true
	})
	r.rateLimits.Range(func(key, val any) bool {
		if entry, ok := val.(*rateLimitEntry); ok && now.After(entry.expiresAt) {
			r.rateLimits.Delete(key)
		}
		return true
	})
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, customerID string) (*models.SessionState, error) {
	val, ok := r.sessions.Load(customerID)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	// Lazy expiry: an expired session must behave as if it never existed,
	// even before the sweeper gets to it.
	if time.Now().After(entry.expiresAt) {
		r.sessions.Delete(customerID)
		return nil, nil
	}
	return entry.session, nil
}

func (r *MemorySessionRepository) SetSession(ctx context.Context, session *models.SessionState) error {
	r.sessions.Store(session.CustomerID, &sessionEntry{
		session:   session,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySessionRepository) ClearSession(ctx context.Context, customerID string) error {
	r.sessions.Delete(customerID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(customerID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(customerID, entry)
	return entry.count <= limit, nil
}
