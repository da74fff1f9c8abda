// Package cache keeps keyed, time-limited snapshots of the document's
// collections. Entries are not written through: a Save does not refresh
// them, so readers may see data up to one TTL old.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/metrics"
	"agency-sync-server/internal/normalize"

	"go.uber.org/zap"
)

const DefaultTTL = 5 * time.Minute

// Backend stores encoded entries. Get reports a miss for absent and
// expired keys alike.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Source hands out the current document.
type Source interface {
	Snapshot() *domain.Document
}

// Observable is a Source that announces every adopted document.
type Observable interface {
	Source
	Subscribe(fn func(*domain.Document)) (unsubscribe func())
	Initialized() bool
}

type Cache struct {
	backend Backend
	source  Source
	ttl     time.Duration
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	populated atomic.Bool
}

type Option func(*Cache)

// WithTTL sets the TTL used when Set or Update is given none.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Cache) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(backend Backend, source Source, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		source:  source,
		ttl:     DefaultTTL,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys lists every cacheable collection, in document order.
func Keys() []string {
	keys := make([]string, 0, len(normalize.Schema))
	for _, f := range normalize.Schema {
		keys = append(keys, f.Name)
	}
	return keys
}

// Set stores value under key. A ttl of zero or less uses the default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return c.backend.Set(ctx, key, data, ttl)
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warnw("cache lookup failed", "key", key, "error", err)
		ok = false
	}
	c.metrics.CacheLookup(ok)
	return data, ok
}

// Get returns the entry under key, or false when it is absent, expired or
// cannot be decoded as T.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var value T
	data, ok := c.lookup(ctx, key)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		c.log.Warnw("cache entry undecodable", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return value, true
}

// GetOr returns the entry under key, or fallback on a miss.
func GetOr[T any](ctx context.Context, c *Cache, key string, fallback T) T {
	if value, ok := Get[T](ctx, c, key); ok {
		return value
	}
	return fallback
}

// GetRaw returns the encoded entry under key.
func (c *Cache) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	data, ok := c.lookup(ctx, key)
	return data, ok
}

// Update populates every key from the current snapshot. Only the first
// call that finds a document does any work; later calls are no-ops until
// Clear.
func (c *Cache) Update(ctx context.Context) error {
	if !c.populated.CompareAndSwap(false, true) {
		return nil
	}
	doc := c.source.Snapshot()
	if doc == nil {
		c.populated.Store(false)
		return nil
	}
	if err := c.populate(ctx, doc); err != nil {
		c.populated.Store(false)
		return err
	}
	return nil
}

// ForceUpdate repopulates every key regardless of earlier updates.
func (c *Cache) ForceUpdate(ctx context.Context) error {
	doc := c.source.Snapshot()
	if doc == nil {
		return domain.ErrNotInitialized
	}
	if err := c.populate(ctx, doc); err != nil {
		return err
	}
	c.populated.Store(true)
	return nil
}

func (c *Cache) populate(ctx context.Context, doc *domain.Document) error {
	for _, f := range normalize.Schema {
		if err := c.Set(ctx, f.Name, f.Value(doc), c.ttl); err != nil {
			return err
		}
	}
	c.log.Debugw("cache populated", "keys", len(normalize.Schema), "ttl", c.ttl)
	return nil
}

// Clear drops every entry and re-arms the automatic Update.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return err
	}
	c.populated.Store(false)
	return nil
}

// Populated reports whether an Update or ForceUpdate has succeeded since
// the last Clear.
func (c *Cache) Populated() bool {
	return c.populated.Load()
}

// AttachTo runs the automatic Update on the first document src adopts, or
// right away when src already has one.
func (c *Cache) AttachTo(src Observable) (detach func()) {
	unsubscribe := src.Subscribe(func(*domain.Document) {
		if c.populated.Load() {
			return
		}
		if err := c.Update(context.Background()); err != nil {
			c.log.Warnw("cache update failed", "error", err)
		}
	})
	if src.Initialized() {
		if err := c.Update(context.Background()); err != nil {
			c.log.Warnw("cache update failed", "error", err)
		}
	}
	return unsubscribe
}
