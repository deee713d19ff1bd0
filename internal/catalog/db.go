package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source lists models from an external catalog (the ai_models table).
type Source interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
}

// DB is a Catalog backed by an external source with the static default
// set as fallback. The source of truth is the database; the static set
// covers cold starts and source outages. Entries are cached with a TTL
// so every cost lookup does not hit the database.
// failureBackoff is how long a failed refresh is negatively cached, so
// a down database is not re-queried on every cost lookup.
const failureBackoff = 30 * time.Second

type DB struct {
	source   Source
	fallback *Static
	ttl      time.Duration

	mu       sync.RWMutex
	cached   *Static
	loadedAt time.Time
	retryAt  time.Time
}

// NewDB creates a DB catalog over the given source.
func NewDB(source Source, ttl time.Duration) *DB {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DB{source: source, fallback: Default(), ttl: ttl}
}

// snapshot returns the current model set, refreshing from the source
// when the cache is stale. A refresh failure falls back to the last
// good snapshot, then to the static defaults.
func (d *DB) snapshot() *Static {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.loadedAt) < d.ttl {
		c := d.cached
		d.mu.RUnlock()
		return c
	}
	if time.Now().Before(d.retryAt) {
		c := d.cached
		d.mu.RUnlock()
		if c != nil {
			return c
		}
		return d.fallback
	}
	d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := d.source.ListModels(ctx)
	if err != nil || len(models) == 0 {
		if err != nil {
			zap.L().Warn("catalog: source refresh failed", zap.Error(err))
		}
		d.mu.Lock()
		d.retryAt = time.Now().Add(failureBackoff)
		c := d.cached
		d.mu.Unlock()
		if c != nil {
			return c
		}
		return d.fallback
	}

	fresh := NewStatic(models)
	d.mu.Lock()
	d.cached = fresh
	d.loadedAt = time.Now()
	d.retryAt = time.Time{}
	d.mu.Unlock()
	return fresh
}

// Resolve implements Catalog.
func (d *DB) Resolve(id string) (ModelDescriptor, bool) { return d.snapshot().Resolve(id) }

// Active implements Catalog.
func (d *DB) Active() []ModelDescriptor { return d.snapshot().Active() }

// Cost implements Catalog.
func (d *DB) Cost(id string, inputTokens, outputTokens int64) float64 {
	return d.snapshot().Cost(id, inputTokens, outputTokens)
}

// Label implements Catalog.
func (d *DB) Label(id string) string { return d.snapshot().Label(id) }
