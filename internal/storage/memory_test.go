package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

func testLogger() *logger.Logger { return logger.New(logger.LevelOff, nil) }

func sampleRecipes() []domain.Recipe {
	return []domain.Recipe{
		{
			Title:  "Red Lentil Dal",
			Source: domain.SourceSpoonacular,
			URL:    "https://example.com/dal",
			Nutrition: map[string]*float64{
				domain.NutrientCalories: domain.Float(320),
				domain.NutrientProtein:  nil,
			},
			NutritionConfidence: map[string]float64{domain.NutrientCalories: 0.8},
		},
		{Title: "Vegetable Stir Fry", Source: domain.SourceYouTube},
	}
}

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestMemoryCachePutGet(t *testing.T) {
	cache := NewMemoryCache(testLogger())
	ctx := context.Background()

	_, err := cache.Get(ctx, "recipes:vegetarian|indian|spicy")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, cache.Put(ctx, "recipes:vegetarian|indian|spicy", sampleRecipes(), time.Hour))

	got, err := cache.Get(ctx, "recipes:vegetarian|indian|spicy")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Red Lentil Dal", got[0].Title)
	assert.Equal(t, 320.0, *got[0].Nutrition[domain.NutrientCalories])

	require.NoError(t, cache.Delete(ctx, "recipes:vegetarian|indian|spicy"))
	_, err = cache.Get(ctx, "recipes:vegetarian|indian|spicy")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, cache.Delete(ctx, "recipes:vegetarian|indian|spicy"))
}

func TestMemoryCacheEmptyResultIsAHit(t *testing.T) {
	cache := NewMemoryCache(testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", nil, time.Hour))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(testLogger())
	cache.now = clock.now
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "short", sampleRecipes(), time.Minute))
	require.NoError(t, cache.Put(ctx, "forever", sampleRecipes(), 0))

	clock.advance(59 * time.Second)
	_, err := cache.Get(ctx, "short")
	require.NoError(t, err)

	clock.advance(time.Second)
	_, err = cache.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	clock.advance(24 * time.Hour)
	_, err = cache.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCachePurge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(testLogger())
	cache.now = clock.now
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a", sampleRecipes(), time.Minute))
	require.NoError(t, cache.Put(ctx, "b", sampleRecipes(), time.Hour))
	require.NoError(t, cache.Put(ctx, "c", sampleRecipes(), 0))
	assert.Equal(t, 3, cache.Len())

	clock.advance(2 * time.Minute)
	n, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache(testLogger())
	ctx := context.Background()

	in := sampleRecipes()
	require.NoError(t, cache.Put(ctx, "k", in, time.Hour))
	in[0].Title = "changed after put"

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	got[1].Title = "changed after get"

	again, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Red Lentil Dal", again[0].Title)
	assert.Equal(t, "Vegetable Stir Fry", again[1].Title)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(testLogger())
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = cache.Put(ctx, "shared", sampleRecipes(), time.Hour)
				_, _ = cache.Get(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	got, err := cache.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
