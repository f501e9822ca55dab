package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
)

type stubRepo struct {
	sessions   map[string]*domain.Session
	touchedTTL time.Duration
	touches    int
	sweptAt    time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{sessions: map[string]*domain.Session{}}
}

func (r *stubRepo) Touch(_ context.Context, id string, ttl time.Duration) (*domain.Session, error) {
	r.touchedTTL = ttl
	r.touches++
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubRepo) Ensure(_ context.Context, id string, ttl time.Duration) (*domain.Session, error) {
	r.touchedTTL = ttl
	s, ok := r.sessions[id]
	if !ok {
		s = &domain.Session{ID: id}
		r.sessions[id] = s
	}
	clone := *s
	return &clone, nil
}

func (r *stubRepo) SetCustomer(_ context.Context, id string, customerID int64) error {
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.CustomerID = customerID
	return nil
}

func (r *stubRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.sweptAt = now
	return 2, nil
}

func TestStart_IssuesIDForMissingOrMalformed(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, time.Hour, nil)
	ctx := context.Background()

	for _, id := range []string{"", "not-a-uuid"} {
		sess, issued, err := svc.Start(ctx, id)
		require.NoError(t, err)
		assert.True(t, issued)
		assert.NotEqual(t, id, sess.ID)
	}
	assert.Empty(t, repo.sessions, "new sessions are not stored")
	assert.Zero(t, repo.touches)
}

func TestStart_ResumesExisting(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, 0, nil)
	ctx := context.Background()

	first, _, err := svc.Start(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Login(ctx, first.ID, 7))
	require.Len(t, repo.sessions, 1)

	again, issued, err := svc.Start(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Equal(t, int64(7), again.CustomerID)
	assert.Equal(t, 48*time.Hour, svc.TTL())
	assert.Equal(t, 48*time.Hour, repo.touchedTTL)

	require.NoError(t, svc.Logout(ctx, first.ID))
	again, _, err = svc.Start(ctx, first.ID)
	require.NoError(t, err)
	assert.Zero(t, again.CustomerID)
}

func TestStart_UnstoredSessionKeepsID(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, time.Hour, nil)
	ctx := context.Background()
	id := "8b7f3c0e-0000-4000-8000-000000000000"

	for i := 0; i < 3; i++ {
		sess, issued, err := svc.Start(ctx, id)
		require.NoError(t, err)
		assert.False(t, issued)
		assert.Equal(t, id, sess.ID)
	}
	assert.Empty(t, repo.sessions)
	assert.NoError(t, svc.Logout(ctx, id))
}

func TestLogin_StoresSession(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, time.Hour, nil)
	id := "8b7f3c0e-0000-4000-8000-000000000000"

	require.NoError(t, svc.Login(context.Background(), id, 3))
	require.Contains(t, repo.sessions, id)
	assert.Equal(t, int64(3), repo.sessions[id].CustomerID)

	err := svc.Login(context.Background(), "x", 0)
	assert.Equal(t, domain.EREQUEST, domain.ErrorCode(err))
	err = svc.Login(context.Background(), "not-a-uuid", 3)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestSweep(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, time.Hour, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, fixed, repo.sweptAt)
}
