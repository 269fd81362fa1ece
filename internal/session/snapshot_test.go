package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &RedisStore{Client: client, TTL: time.Hour}, mr
}

func sampleSnapshot() Snapshot {
	line := cart.Line{
		Product:  catalog.Product{ID: "espresso", Name: "Espresso", Price: 1.20, VATRate: 10, Type: catalog.TypeUnit},
		Quantity: 2,
	}
	return Snapshot{
		Lines:          []cart.Line{line},
		GlobalDiscount: &pricing.Discount{Type: pricing.DiscountPercent, Value: 5},
		InvoiceMode:    true,
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "till-1", sampleSnapshot()))

	got, err := store.Load(ctx, "till-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "espresso", got.Lines[0].Product.ID)
	require.True(t, got.InvoiceMode)
	require.NotNil(t, got.GlobalDiscount)

	require.NoError(t, store.Delete(ctx, "till-1"))
	got, err = store.Load(ctx, "till-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStoreMissingKeyIsNil(t *testing.T) {
	store, _ := newRedisStore(t)
	got, err := store.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStoreCorruptSnapshotDiscarded(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("pos:session:till-1", "{not json"))

	got, err := store.Load(context.Background(), "till-1")
	require.NoError(t, err)
	require.Nil(t, got, "corrupt snapshot must not block the register")
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(context.Background(), "till-1", sampleSnapshot()))

	mr.FastForward(2 * time.Hour)

	got, err := store.Load(context.Background(), "till-1")
	require.NoError(t, err)
	require.Nil(t, got, "abandoned snapshots expire")
}
