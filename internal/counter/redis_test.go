package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisCounterWith(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRedisCounter(t *testing.T, quantity int, expiresAt *time.Time, checkExpiry bool) (Store, uint) {
	_, client := newRedisCounterWith(t)
	store := NewRedisStore(client, "qrtest", Options{CheckExpiry: checkExpiry})
	const cardID uint = 42
	require.NoError(t, store.Init(context.Background(), cardID, quantity, expiresAt))
	return store, cardID
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, newRedisCounter)
}

func TestRedisStoreInitDoesNotReset(t *testing.T) {
	store, id := newRedisCounter(t, 2, nil, true)
	ctx := context.Background()
	_, err := store.TryDecrement(ctx, id, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Init(ctx, id, 2, nil))
	remaining, err := store.Remaining(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}

func TestRedisStoreSetExpiryAndRemove(t *testing.T) {
	store, id := newRedisCounter(t, 2, nil, true)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.SetExpiry(ctx, id, &past))
	_, err := store.TryDecrement(ctx, id, time.Now())
	require.ErrorIs(t, err, ErrExpired)

	require.NoError(t, store.SetExpiry(ctx, id, nil))
	_, err = store.TryDecrement(ctx, id, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, id))
	_, err = store.TryDecrement(ctx, id, time.Now())
	require.ErrorIs(t, err, ErrNotFound)

	// 不存在的计数设置过期时间不会凭空创建
	require.NoError(t, store.SetExpiry(ctx, id, &past))
	_, err = store.Remaining(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, client := newRedisCounterWith(t)
	store := NewRedisStore(client, "", Options{})
	require.NoError(t, store.Init(context.Background(), 7, 3, nil))
	require.True(t, mr.Exists(fmt.Sprintf("qr:counter:card:%d", 7)))
	require.Equal(t, "3", mr.HGet("qr:counter:card:7", "quantity"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newRedisCounterWith(t)
	store := NewRedisStore(client, "qrtest", Options{CheckExpiry: true})
	require.NoError(t, store.Init(context.Background(), 1, 1, nil))
	mr.Close()

	_, err := store.TryDecrement(context.Background(), 1, time.Now())
	require.Error(t, err)
	require.False(t, IsOutcome(err))
}
