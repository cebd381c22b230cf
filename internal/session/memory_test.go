package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimart/internal/model"
)

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	store := NewMemoryStore(DefaultTimeout)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	return store, &now
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, model.RoleBuyer, 7)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleBuyer, sess.Role)
	assert.Equal(t, int64(7), sess.UserID)
}

func TestGetUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiryBoundary(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, model.RoleSeller, 3)
	require.NoError(t, err)

	// Exactly at the window boundary the session is still active.
	*now = now.Add(DefaultTimeout)
	_, err = store.Get(ctx, token)
	require.NoError(t, err)

	// The successful validation refreshed last-active, so another full
	// window plus one second expires it.
	*now = now.Add(DefaultTimeout + time.Second)
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrExpired)

	// The expired session transitioned to absent.
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlidingRefresh(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, model.RoleBuyer, 1)
	require.NoError(t, err)

	// Touch the session every four minutes; it must outlive many
	// timeout windows of absolute time.
	for i := 0; i < 5; i++ {
		*now = now.Add(4 * time.Minute)
		_, err = store.Get(ctx, token)
		require.NoError(t, err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, model.RoleBuyer, 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, token))
	require.NoError(t, store.Delete(ctx, token))

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentSessionsPerAccount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, model.RoleBuyer, 9)
	require.NoError(t, err)
	second, err := store.Create(ctx, model.RoleBuyer, 9)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// A new login never invalidates prior sessions.
	_, err = store.Get(ctx, first)
	assert.NoError(t, err)
	_, err = store.Get(ctx, second)
	assert.NoError(t, err)
}
