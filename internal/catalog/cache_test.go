package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	products := []Product{{ID: "p1", Name: "Espresso", Price: 1.20, Type: TypeUnit}}
	require.NoError(t, cache.SetJSON(ctx, "catalog:products", products))

	var got []Product
	hit, err := cache.GetJSON(ctx, "catalog:products", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, products, got)

	require.NoError(t, cache.Invalidate(ctx, "catalog:products"))
	hit, err = cache.GetJSON(ctx, "catalog:products", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheNilClientDisables(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, "k", "v"))
	var out string
	hit, err := cache.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, hit)
}
