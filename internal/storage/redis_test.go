package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/recipevoice/internal/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(context.Background(), RedisConfig{
		Addr:   mr.Addr(),
		Prefix: "recipevoice:",
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return mr, cache
}

func TestRedisCachePutGet(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "recipes:any|thai|creamy")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, cache.Put(ctx, "recipes:any|thai|creamy", sampleRecipes(), time.Hour))
	assert.True(t, mr.Exists("recipevoice:recipes:any|thai|creamy"))

	got, err := cache.Get(ctx, "recipes:any|thai|creamy")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Red Lentil Dal", got[0].Title)
	assert.Equal(t, 320.0, *got[0].Nutrition[domain.NutrientCalories])
	assert.Nil(t, got[0].Nutrition[domain.NutrientProtein])
	assert.Equal(t, 0.8, got[0].NutritionConfidence[domain.NutrientCalories])

	require.NoError(t, cache.Delete(ctx, "recipes:any|thai|creamy"))
	_, err = cache.Get(ctx, "recipes:any|thai|creamy")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCacheTTL(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "short", sampleRecipes(), time.Minute))
	require.NoError(t, cache.Put(ctx, "forever", sampleRecipes(), 0))

	assert.Equal(t, time.Minute, mr.TTL("recipevoice:short"))
	assert.Equal(t, time.Duration(0), mr.TTL("recipevoice:forever"))

	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cache.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestRedisCacheEmptyResult(t *testing.T) {
	_, cache := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", nil, time.Hour))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisCacheCorruptEntryIsAMiss(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("recipevoice:bad", "{not json"))

	_, err := cache.Get(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists("recipevoice:bad"))
}

func TestRedisCachePing(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	assert.NoError(t, cache.Ping(ctx))

	mr.Close()
	assert.Error(t, cache.Ping(ctx))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}
