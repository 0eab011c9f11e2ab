package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySessionRepo wraps the memory repository and fails every call while
// broken is set.
type flakySessionRepo struct {
	*MemorySessionRepository
	broken bool
	calls  int
}

func (f *flakySessionRepo) GetSession(ctx context.Context, customerID string) (*models.SessionState, error) {
	f.calls++
	if f.broken {
		return nil, errors.New("connection refused")
	}
	return f.MemorySessionRepository.GetSession(ctx, customerID)
}

func (f *flakySessionRepo) SetSession(ctx context.Context, session *models.SessionState) error {
	f.calls++
	if f.broken {
		return errors.New("connection refused")
	}
	return f.MemorySessionRepository.SetSession(ctx, session)
}

func (f *flakySessionRepo) ClearSession(ctx context.Context, customerID string) error {
	f.calls++
	if f.broken {
		return errors.New("connection refused")
	}
	return f.MemorySessionRepository.ClearSession(ctx, customerID)
}

func (f *flakySessionRepo) CheckRateLimit(ctx context.Context, customerID string, limit int, window time.Duration) (bool, error) {
	f.calls++
	if f.broken {
		return false, errors.New("connection refused")
	}
	return f.MemorySessionRepository.CheckRateLimit(ctx, customerID, limit, window)
}

func newFailoverUnderTest() (*FailoverSessionRepository, *flakySessionRepo, *MemorySessionRepository) {
	primary := &flakySessionRepo{MemorySessionRepository: NewMemorySessionRepository(time.Hour, time.Hour)}
	fallback := NewMemorySessionRepository(time.Hour, time.Hour)
	logger := zerolog.Nop()
	return NewFailoverSessionRepository(primary, fallback, &logger), primary, fallback
}

func TestFailoverPrefersHealthyPrimary(t *testing.T) {
	repo, primary, fallback := newFailoverUnderTest()
	ctx := context.Background()

	session := &models.SessionState{CustomerID: "wa:15550001", Step: models.StepAwaitingQuery}
	require.NoError(t, repo.SetSession(ctx, session))

	got, err := primary.MemorySessionRepository.GetSession(ctx, "wa:15550001")
	require.NoError(t, err)
	assert.NotNil(t, got, "write should land on the primary")

	got, err = fallback.GetSession(ctx, "wa:15550001")
	require.NoError(t, err)
	assert.Nil(t, got, "fallback should stay untouched while primary is healthy")
}

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	repo, primary, fallback := newFailoverUnderTest()
	ctx := context.Background()

	primary.broken = true

	session := &models.SessionState{CustomerID: "wa:15550002", Step: models.StepSlotsPresented}
	require.NoError(t, repo.SetSession(ctx, session))

	got, err := fallback.GetSession(ctx, "wa:15550002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StepSlotsPresented, got.Step)

	// Subsequent reads serve from the fallback without touching the primary
	// until the probe interval elapses.
	callsBefore := primary.calls
	got, err = repo.GetSession(ctx, "wa:15550002")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, callsBefore, primary.calls)
}

func TestFailoverRateLimit(t *testing.T) {
	repo, primary, _ := newFailoverUnderTest()
	ctx := context.Background()

	primary.broken = true

	allowed, err := repo.CheckRateLimit(ctx, "wa:15550003", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "wa:15550003", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fallback must keep enforcing the limit")
}

func TestFailoverRecoversAfterProbe(t *testing.T) {
	repo, primary, _ := newFailoverUnderTest()
	ctx := context.Background()

	primary.broken = true
	_, _ = repo.GetSession(ctx, "wa:15550004") // marks primary down

	primary.broken = false
	// Backdate the last probe so shouldProbe fires immediately.
	repo.lastCheck.Store(time.Now().Add(-2 * recoveryProbeInterval).UnixNano())

	_, err := repo.GetSession(ctx, "wa:15550004")
	require.NoError(t, err)
	assert.False(t, repo.isDown.Load(), "successful probe must mark the primary healthy again")
}
