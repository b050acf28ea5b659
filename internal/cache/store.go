package cache

import (
	"context"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// Store is a best-effort persistent key-value store.
// Get returns domain.ErrCacheMiss for absent keys.
type Store interface {
	// Get returns the value stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key; ttl <= 0 means no backend expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Remove deletes key; removing an absent key is not an error
	Remove(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}

// NopStore is a disabled cache: every read misses and writes are dropped
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, domain.ErrCacheMiss }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Remove(context.Context, string) error { return nil }

func (NopStore) Close() error { return nil }
