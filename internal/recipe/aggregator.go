package recipe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeRetriever = (*Aggregator)(nil)

// Observer is told how each source and cache lookup went. The metrics
// package implements it.
type Observer interface {
	SourceDone(source string, found int, err error, took time.Duration)
	CacheLookup(hit bool)
}

// AggregatorOption configures the Aggregator.
type AggregatorOption func(*Aggregator)

// WithCache caches results for ttl. A nil cache disables caching.
func WithCache(cache domain.RecipeCache, ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = cache
		a.ttl = ttl
	}
}

// WithObserver registers an observer for source and cache outcomes.
func WithObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) { a.observer = o }
}

// WithSourceTimeout bounds each source's search.
func WithSourceTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

// Aggregator queries every source and concatenates their results in
// source order. A failing source is logged and skipped: one broken API
// never fails the whole search.
type Aggregator struct {
	sources  []domain.RecipeSource
	cache    domain.RecipeCache
	ttl      time.Duration
	timeout  time.Duration
	observer Observer
	log      *logger.Logger
}

// NewAggregator creates an aggregator over sources, queried in the given
// order.
func NewAggregator(sources []domain.RecipeSource, log *logger.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		sources: sources,
		timeout: 30 * time.Second,
		log:     log,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Sources returns the source names in query order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// GetRecipes returns the combined results for c, from the cache when a
// fresh entry exists. Never returns a nil slice on success.
func (a *Aggregator) GetRecipes(ctx context.Context, c *domain.Context) ([]domain.Recipe, error) {
	key := CacheKey(c)

	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		switch {
		case err == nil:
			a.observeCache(true)
			a.log.Debug("aggregator: cache hit %s (%d recipes)", key, len(cached))
			return cached, nil
		case errors.Is(err, domain.ErrNotFound):
			a.observeCache(false)
		default:
			a.observeCache(false)
			a.log.Warn("aggregator: cache read failed: %v", err)
		}
	}

	results := make([][]domain.Recipe, len(a.sources))
	failed := make([]bool, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src domain.RecipeSource) {
			defer wg.Done()
			results[i], failed[i] = a.search(ctx, src, c)
		}(i, src)
	}
	wg.Wait()

	out := []domain.Recipe{}
	anyFailed := false
	for i := range a.sources {
		out = append(out, results[i]...)
		anyFailed = anyFailed || failed[i]
	}
	a.log.Info("aggregator: %d recipes from %d sources for %s", len(out), len(a.sources), key)

	// A partial answer is not cached, so the next ask retries the failed
	// source.
	if a.cache != nil && !anyFailed {
		if err := a.cache.Put(ctx, key, out, a.ttl); err != nil {
			a.log.Warn("aggregator: cache write failed: %v", err)
		}
	}
	return out, nil
}

// search runs one source under the per-source timeout and sanitizes what
// it returns.
func (a *Aggregator) search(ctx context.Context, src domain.RecipeSource, c *domain.Context) ([]domain.Recipe, bool) {
	sctx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	found, err := src.Search(sctx, c)
	took := time.Since(start)
	if a.observer != nil {
		a.observer.SourceDone(src.Name(), len(found), err, took)
	}
	if err != nil {
		a.log.Warn("aggregator: source %s failed after %s: %v", src.Name(), took.Round(time.Millisecond), err)
		return nil, true
	}

	for i := range found {
		if n := found[i].Sanitize(); n > 0 {
			a.log.Warn("aggregator: dropped %d invalid nutrition values from %q", n, found[i].Title)
		}
		if found[i].Source == "" {
			found[i].Source = src.Name()
		}
	}
	a.log.Debug("aggregator: source %s returned %d in %s", src.Name(), len(found), took.Round(time.Millisecond))
	return found, false
}

func (a *Aggregator) observeCache(hit bool) {
	if a.observer != nil {
		a.observer.CacheLookup(hit)
	}
}

// CacheKey is the normalized cache key for a context: the three
// preference fields, lowercased, with missing values read as "any".
// Questions do not take part.
func CacheKey(c *domain.Context) string {
	parts := make([]string, 0, len(domain.ContextFields))
	for _, name := range domain.ContextFields {
		v := ""
		if c != nil {
			v = strings.ToLower(strings.Join(strings.Fields(domain.Value(*c.Field(name))), " "))
		}
		if v == "" {
			v = domain.AnyValue
		}
		parts = append(parts, v)
	}
	return "recipes:" + strings.Join(parts, "|")
}
