package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPurger records purge calls.
type countingPurger struct {
	mu    sync.Mutex
	calls int
	n     int64
	err   error
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.n, p.err
}

func (p *countingPurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestJanitorPurgesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(testLogger())
	cache.now = clock.now
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "old", sampleRecipes(), time.Minute))
	require.NoError(t, cache.Put(ctx, "fresh", sampleRecipes(), time.Hour))
	clock.advance(2 * time.Minute)

	j := NewJanitor(cache, testLogger(), WithPurgeInterval(20*time.Millisecond))
	j.Start(ctx)
	defer j.Stop()

	require.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), j.Purged())
}

func TestJanitorStop(t *testing.T) {
	p := &countingPurger{}
	j := NewJanitor(p, testLogger(), WithPurgeInterval(10*time.Millisecond))

	j.Start(context.Background())
	j.Start(context.Background()) // second start is ignored
	require.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)

	j.Stop()
	time.Sleep(30 * time.Millisecond) // let an in-flight tick finish
	after := p.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, p.count())

	j.Stop() // stopping twice is fine
}

func TestJanitorPurgeError(t *testing.T) {
	p := &countingPurger{n: 5, err: errors.New("database is locked")}
	j := NewJanitor(p, testLogger(), WithPurgeInterval(10*time.Millisecond))

	j.Start(context.Background())
	defer j.Stop()

	require.Eventually(t, func() bool { return p.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), j.Purged())
}

func TestJanitorDisabled(t *testing.T) {
	p := &countingPurger{}
	j := NewJanitor(p, testLogger(), WithPurgeInterval(0))

	j.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	j.Stop()
	assert.Equal(t, 0, p.count())
}
