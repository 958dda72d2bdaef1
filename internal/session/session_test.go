package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl), mr
}

func TestStore_Lifecycle(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()

	sess, err := store.Create(ctx, "bearer-1", backend.User{ID: "1", Username: "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "bearer-1", got.Token)
	assert.Equal(t, "admin", got.User.Username)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Expires(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "bearer-1", backend.User{Username: "admin"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{ID: "s1", Token: "t"})
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("0123456789abcdef", time.Hour)

	tok, err := signer.Sign(Session{ID: "sid-1", User: backend.User{Username: "admin"}})
	require.NoError(t, err)

	sid, err := signer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)
}

func TestSigner_Rejects(t *testing.T) {
	signer := NewSigner("0123456789abcdef", time.Hour)
	other := NewSigner("fedcba9876543210", time.Hour)

	foreign, err := other.Sign(Session{ID: "sid-1"})
	require.NoError(t, err)

	expired := NewSigner("0123456789abcdef", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Sign(Session{ID: "sid-1"})
	require.NoError(t, err)

	noID, err := signer.Sign(Session{})
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong secret": foreign,
		"expired":      old,
		"garbage":      "not.a.jwt",
		"missing id":   noID,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := signer.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
