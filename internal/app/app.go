// Package app wires the search engine and its collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/airwaves-fm/stationsearch/internal/cache"
	"github.com/airwaves-fm/stationsearch/internal/config"
	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/internal/content/cosmic"
	"github.com/airwaves-fm/stationsearch/internal/content/fixture"
	"github.com/airwaves-fm/stationsearch/internal/search"
	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Engine is the search service together with the resources it owns
type Engine struct {
	Service *service.SearchService
	Store   cache.Store
	Source  content.Source

	cfg     *config.Config
	watcher *fixture.Watcher
	logger  *logger.Logger
}

// New builds the engine described by cfg. A cache backend that cannot be
// opened is logged and replaced by a disabled cache.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	log = log.WithComponent("app")

	svcCfg, err := ServiceConfig(cfg)
	if err != nil {
		return nil, err
	}

	source, err := OpenSource(cfg.Content, log)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Cache)
	if err != nil {
		log.Warn("Cache backend unavailable, continuing without cache", "backend", cfg.Cache.Backend, "error", err)
		store = cache.NopStore{}
	}

	clientCache := cache.NewClientCache(store, cfg.Cache.TTL, cfg.Cache.Namespace, log)

	return &Engine{
		Service: service.NewSearchService(source, clientCache, svcCfg, log),
		Store:   store,
		Source:  source,
		cfg:     cfg,
		logger:  log,
	}, nil
}

// ServiceConfig maps the search and content sections onto the engine tuning
func ServiceConfig(cfg *config.Config) (service.Config, error) {
	fuzziness, err := config.ParseFuzziness(cfg.Search.Fuzziness)
	if err != nil {
		return service.Config{}, err
	}
	return service.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		PerTypeLimit: cfg.Content.PerTypeLimit,
		Index: search.Options{
			Weights:        search.DefaultWeights(),
			Fuzziness:      fuzziness,
			Threshold:      cfg.Search.Threshold,
			QueryCacheSize: cfg.Search.QueryCacheSize,
		},
	}, nil
}

// OpenSource creates the configured content repository
func OpenSource(cfg config.ContentConfig, log *logger.Logger) (content.Source, error) {
	switch cfg.Source {
	case "cosmic":
		client, err := cosmic.New(cfg.Endpoint, cfg.Bucket, cfg.ReadKey, log,
			cosmic.WithTimeout(cfg.Timeout),
			cosmic.WithPageSize(cfg.PageSize),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "fixture":
		src, err := fixture.Open(cfg.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixture: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown content source %q", cfg.Source)
	}
}

// OpenStore creates the configured cache backend
func OpenStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "badger":
		store, err := cache.NewBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return cache.NewMemoryStore(cfg.MemorySize, cfg.TTL), nil
	case "none", "":
		return cache.NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Watch reloads a fixture source on change and refreshes the snapshot.
// It does nothing unless the fixture source is configured with watching on.
func (e *Engine) Watch(ctx context.Context) error {
	src, ok := e.Source.(*fixture.Source)
	if !ok || !e.cfg.Content.WatchFixture {
		return nil
	}
	w, err := fixture.Watch(ctx, src, fixture.DefaultSettle, func() {
		if _, err := e.Service.Refresh(ctx); err != nil {
			e.logger.Error("Refresh after fixture change failed", "error", err)
		}
	}, e.logger)
	if err != nil {
		return err
	}
	e.watcher = w
	return nil
}

// Close stops the watcher and releases the snapshot and the cache store
func (e *Engine) Close() error {
	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
	}
	e.Service.Close()
	errs = append(errs, e.Store.Close())
	return errors.Join(errs...)
}
