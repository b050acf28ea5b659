package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// DefaultTTL is how long cached entries stay fresh
const DefaultTTL = 15 * time.Minute

// Entry keys, relative to the namespace
const (
	keyContent = "content-snapshot"
	keyFacets  = "facet-universe"
)

// ContentEntry is the cached normalized snapshot
type ContentEntry struct {
	SnapshotID string               `json:"snapshot_id"`
	CreatedAt  time.Time            `json:"created_at"`
	Items      []domain.SearchItem  `json:"items"`
	Partial    []domain.ContentType `json:"partial,omitempty"`
}

// FacetEntry is the cached facet universe of one snapshot
type FacetEntry struct {
	SnapshotID string        `json:"snapshot_id"`
	Facets     domain.Facets `json:"facets"`
}

// envelope wraps every stored payload with its write time
type envelope[T any] struct {
	WrittenAt time.Time `json:"written_at"`
	Payload   T         `json:"payload"`
}

// ClientCache stores the content snapshot and facet universe with expiry.
// Every failure is logged and reported as a miss.
type ClientCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	now       func() time.Time
	logger    *logger.Logger
}

// NewClientCache creates a client cache over store. A nil store disables caching.
func NewClientCache(store Store, ttl time.Duration, namespace string, log *logger.Logger) *ClientCache {
	if store == nil {
		store = NopStore{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ClientCache{
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
		logger:    log.WithComponent("client-cache"),
	}
}

// SetClock replaces the time source
func (c *ClientCache) SetClock(now func() time.Time) {
	c.now = now
}

// TTL returns the freshness window
func (c *ClientCache) TTL() time.Duration {
	return c.ttl
}

// LoadContent returns the cached snapshot if present and fresh
func (c *ClientCache) LoadContent(ctx context.Context) (*ContentEntry, bool) {
	var entry ContentEntry
	if !load(ctx, c, keyContent, &entry) {
		return nil, false
	}
	return &entry, true
}

// SaveContent stores the snapshot
func (c *ClientCache) SaveContent(ctx context.Context, entry *ContentEntry) {
	save(ctx, c, keyContent, entry)
}

// LoadFacets returns the cached facet universe if present and fresh
func (c *ClientCache) LoadFacets(ctx context.Context) (*FacetEntry, bool) {
	var entry FacetEntry
	if !load(ctx, c, keyFacets, &entry) {
		return nil, false
	}
	return &entry, true
}

// SaveFacets stores the facet universe
func (c *ClientCache) SaveFacets(ctx context.Context, entry *FacetEntry) {
	save(ctx, c, keyFacets, entry)
}

// Clear removes both entries
func (c *ClientCache) Clear(ctx context.Context) {
	for _, key := range []string{keyContent, keyFacets} {
		if err := c.store.Remove(ctx, c.key(key)); err != nil {
			c.logger.Warn("Failed to remove cache entry", "key", key, "error", err)
		}
	}
}

func (c *ClientCache) key(name string) string {
	if c.namespace == "" {
		return name
	}
	return c.namespace + ":" + name
}

func load[T any](ctx context.Context, c *ClientCache, name string, out *T) bool {
	key := c.key(name)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("Cache read failed, bypassing", "key", key, "error", err)
		}
		return false
	}

	env, err := decode[T](raw)
	if err != nil {
		c.logger.Warn("Discarding corrupt cache entry", "key", key, "error", err)
		c.remove(ctx, key)
		return false
	}

	age := c.now().Sub(env.WrittenAt)
	if age < 0 || age >= c.ttl {
		c.logger.Debug("Cache entry expired", "key", key, "age_ms", age.Milliseconds())
		c.remove(ctx, key)
		return false
	}

	*out = env.Payload
	return true
}

func save[T any](ctx context.Context, c *ClientCache, name string, payload *T) {
	key := c.key(name)
	raw, err := encode(envelope[T]{WrittenAt: c.now(), Payload: *payload})
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("Cache write failed, bypassing", "key", key, "error", err)
	}
}

func (c *ClientCache) remove(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, key); err != nil {
		c.logger.Debug("Failed to remove cache entry", "key", key, "error", err)
	}
}

func encode[T any](env envelope[T]) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode[T any](raw []byte) (*envelope[T], error) {
	var env envelope[T]
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}
	if env.WrittenAt.IsZero() {
		return nil, domain.ErrCacheCorrupt
	}
	return &env, nil
}
