package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Purger is a cache that can drop its expired entries in bulk.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Compile-time interface checks.
var (
	_ Purger = (*MemoryCache)(nil)
	_ Purger = (*SQLiteCache)(nil)
)

// JanitorOption configures the janitor.
type JanitorOption func(*Janitor)

// WithPurgeInterval sets how often the janitor purges.
func WithPurgeInterval(d time.Duration) JanitorOption {
	return func(j *Janitor) {
		j.interval = d
	}
}

// Janitor runs in the background and purges expired cache entries, so
// keys that are never read again do not pile up. Redis expires keys on
// its own and needs no janitor.
type Janitor struct {
	cache    Purger
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	purged  int64
}

// NewJanitor creates a janitor for cache.
func NewJanitor(cache Purger, log *logger.Logger, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		cache:    cache,
		log:      log,
		interval: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start begins the background purge loop. Non-blocking.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		j.log.Warn("cache janitor already running")
		return
	}
	if j.interval <= 0 {
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true

	go j.loop(childCtx)
	j.log.Info("cache janitor started (interval=%s)", j.interval)
}

// Stop shuts the loop down.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	j.cancel()
	j.running = false
	j.log.Info("cache janitor stopped")
}

// Purged returns how many entries the janitor has removed so far.
func (j *Janitor) Purged() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.purged
}

func (j *Janitor) loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

// tick runs one purge.
func (j *Janitor) tick(ctx context.Context) {
	n, err := j.cache.Purge(ctx)
	if err != nil {
		j.log.Error("janitor: purge failed: %v", err)
		return
	}
	if n == 0 {
		return
	}

	j.mu.Lock()
	j.purged += n
	j.mu.Unlock()
	j.log.Debug("janitor: purged %d expired entries", n)
}
