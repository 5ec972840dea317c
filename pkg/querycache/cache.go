package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/typixhq/typix/pkg/logging"
)

// QueryFunc produces the value for a cache miss.
type QueryFunc[V any] func(ctx context.Context) (V, error)

// Cache wraps a query function with single-flight deduplication and a
// persisted, staleness-bounded store. V must round-trip through JSON.
type Cache[V any] struct {
	store  Store
	flight singleflight.Group
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithLogger attaches a structured logger.
func WithLogger[V any](l *logging.Logger) Option[V] {
	return func(c *Cache[V]) { c.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// New builds a cache over the given store. A nil store falls back to an
// in-memory one.
func New[V any](store Store, opts ...Option[V]) *Cache[V] {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache[V]{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the value for key. Callers arriving while an identical
// request is in flight share its pending result instead of triggering a
// second execution. Otherwise a persisted entry younger than staleTime is
// returned without calling fn; anything else executes fn and persists the
// result. The in-flight marker is dropped when fn returns, success or not.
func (c *Cache[V]) Fetch(ctx context.Context, key Key, fn QueryFunc[V], staleTime time.Duration) (V, error) {
	storageKey := key.Canonical()
	v, err, shared := c.flight.Do(storageKey, func() (any, error) {
		if cached, ok := c.lookup(ctx, storageKey, staleTime); ok {
			metricHits.Inc()
			return cached, nil
		}
		metricMisses.Inc()
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.persist(ctx, storageKey, value)
		return value, nil
	})
	if shared {
		metricShared.Inc()
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Prefetch warms the cache for key in the background. Errors are logged and
// otherwise dropped. The warm-up is detached from ctx's cancellation so a
// caller returning right after the call does not abort it; ctx values are
// preserved.
func (c *Cache[V]) Prefetch(ctx context.Context, key Key, fn QueryFunc[V], staleTime time.Duration) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if _, err := c.Fetch(ctx, key, fn, staleTime); err != nil {
			c.log(logging.LevelDebug, "prefetch_failed", map[string]any{
				"key":   key.Canonical(),
				"error": err.Error(),
			})
		}
	}()
}

// GetCached returns the persisted entry for key regardless of staleness.
func (c *Cache[V]) GetCached(ctx context.Context, key Key) (V, bool) {
	var zero V
	entry, ok, err := c.store.Get(ctx, key.Canonical())
	if err != nil || !ok {
		return zero, false
	}
	var value V
	if err := json.Unmarshal(entry.Data, &value); err != nil {
		return zero, false
	}
	return value, true
}

// SetCache persists value under key with the current timestamp.
func (c *Cache[V]) SetCache(ctx context.Context, key Key, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.store.Set(ctx, key.Canonical(), Entry{Data: data, Timestamp: c.now()})
}

// Invalidate removes every persisted entry whose canonical key equals the
// canonicalized prefix or extends it past a separator. Trailing parameters
// after the prefix do not save an entry from invalidation.
func (c *Cache[V]) Invalidate(ctx context.Context, keyPrefix Key) error {
	prefix := keyPrefix.Canonical()
	if err := c.store.Delete(ctx, prefix); err != nil {
		return err
	}
	return c.store.DeletePrefix(ctx, prefix+Separator)
}

// Clear drops every entry in the cache's namespace.
func (c *Cache[V]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// lookup reads a persisted entry, treating storage errors and stale or
// undecodable entries as misses.
func (c *Cache[V]) lookup(ctx context.Context, storageKey string, staleTime time.Duration) (V, bool) {
	var zero V
	entry, ok, err := c.store.Get(ctx, storageKey)
	if err != nil {
		c.log(logging.LevelWarn, "store_read_failed", map[string]any{
			"key":   storageKey,
			"error": err.Error(),
		})
		return zero, false
	}
	if !ok || staleTime <= 0 {
		return zero, false
	}
	if c.now().Sub(entry.Timestamp) >= staleTime {
		return zero, false
	}
	var value V
	if err := json.Unmarshal(entry.Data, &value); err != nil {
		return zero, false
	}
	return value, true
}

func (c *Cache[V]) persist(ctx context.Context, storageKey string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, storageKey, Entry{Data: data, Timestamp: c.now()}); err != nil {
		c.log(logging.LevelWarn, "store_write_failed", map[string]any{
			"key":   storageKey,
			"error": err.Error(),
		})
	}
}

func (c *Cache[V]) log(level logging.Level, eventType string, details map[string]any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(level, logging.CategoryCache, eventType, "", details)
}
