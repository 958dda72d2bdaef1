package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/inventory-dashboard/internal/orders"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	_, rdb := newRedis(t)
	store := orders.NewSnapshotStore(rdb, time.Minute)
	ctx := context.Background()

	snap := snapshotWith(7, decimal.RequireFromString("12500.50"))
	snap.LoadedAt = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	formID, err := store.Save(ctx, "sess-1", snap)
	require.NoError(t, err)
	require.NotEmpty(t, formID)

	got, err := store.Load(ctx, "sess-1", formID)
	require.NoError(t, err)
	item, ok := got.Item("b1")
	require.True(t, ok)
	assert.Equal(t, 7, item.Stock)
	assert.True(t, decimal.RequireFromString("12500.50").Equal(item.Price))
	assert.True(t, snap.LoadedAt.Equal(got.LoadedAt))

	// another session cannot read it
	_, err = store.Load(ctx, "sess-2", formID)
	assert.ErrorIs(t, err, orders.ErrFormExpired)

	require.NoError(t, store.Delete(ctx, "sess-1", formID))
	_, err = store.Load(ctx, "sess-1", formID)
	assert.ErrorIs(t, err, orders.ErrFormExpired)
}

func TestSnapshotStore_Expires(t *testing.T) {
	mr, rdb := newRedis(t)
	store := orders.NewSnapshotStore(rdb, 10*time.Minute)
	ctx := context.Background()

	formID, err := store.Save(ctx, "sess-1", snapshotWith(1, decimal.NewFromInt(1)))
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)
	_, err = store.Load(ctx, "sess-1", formID)
	assert.ErrorIs(t, err, orders.ErrFormExpired)
}

func TestSnapshotStore_PutReplacesUnderSameID(t *testing.T) {
	_, rdb := newRedis(t)
	store := orders.NewSnapshotStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "sess-1", "form-1", snapshotWith(5, decimal.NewFromInt(1))))
	require.NoError(t, store.Put(ctx, "sess-1", "form-1", snapshotWith(2, decimal.NewFromInt(1))))

	got, err := store.Load(ctx, "sess-1", "form-1")
	require.NoError(t, err)
	item, ok := got.Item("b1")
	require.True(t, ok)
	assert.Equal(t, 2, item.Stock)
}
