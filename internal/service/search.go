package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/airwaves-fm/stationsearch/internal/cache"
	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/internal/facets"
	"github.com/airwaves-fm/stationsearch/internal/normalize"
	"github.com/airwaves-fm/stationsearch/internal/paginate"
	"github.com/airwaves-fm/stationsearch/internal/search"
	"github.com/airwaves-fm/stationsearch/internal/urlstate"
	"github.com/airwaves-fm/stationsearch/internal/validator"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

const (
	// partialRetry caps the life of a snapshot built with failed fetches
	partialRetry = time.Minute
	// retireDelay keeps a replaced index open for searches still using it
	retireDelay = 30 * time.Second
)

// Advisory messages surfaced in Response.Error
const (
	msgLoadFailed   = "Failed to load content"
	msgSearchFailed = "Search failed"
	msgCancelled    = "Search cancelled"
)

// Config tunes the search engine
type Config struct {
	DefaultLimit int
	MaxLimit     int
	PerTypeLimit int
	Index        search.Options
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 24,
		MaxLimit:     100,
		PerTypeLimit: 1000,
		Index:        search.DefaultOptions(),
	}
}

// Options selects a page of results
type Options struct {
	Page  int `validate:"gte=1"`
	Limit int `validate:"gte=1"`
}

// Response is the envelope returned by every search operation
type Response struct {
	Items            []domain.SearchItem  `json:"items"`
	Total            int                  `json:"total"`
	HasMore          bool                 `json:"hasMore"`
	Page             int                  `json:"page"`
	Limit            int                  `json:"limit"`
	AvailableFilters domain.Facets        `json:"availableFilters"`
	Query            string               `json:"query"`
	SnapshotID       string               `json:"snapshotId,omitempty"`
	Partial          []domain.ContentType `json:"partial,omitempty"`
	Error            string               `json:"error,omitempty"`
}

// Stats describes the resident snapshot
type Stats struct {
	Loaded     bool                 `json:"loaded"`
	SnapshotID string               `json:"snapshot_id,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	AgeMs      int64                `json:"age_ms"`
	Items      int                  `json:"items"`
	Indexed    bool                 `json:"indexed"`
	Partial    []domain.ContentType `json:"partial,omitempty"`
}

// SearchService owns the content snapshot lifecycle and exposes the
// search operations. It is safe for concurrent use.
type SearchService struct {
	collector  *content.Collector
	normalizer *normalize.Normalizer
	cache      *cache.ClientCache
	validator  *validator.Validator
	cfg        Config
	current    atomic.Pointer[Snapshot]
	group      singleflight.Group
	now        func() time.Time
	logger     *logger.Logger
}

// NewSearchService creates a new search service
func NewSearchService(
	source content.Source,
	clientCache *cache.ClientCache,
	cfg Config,
	logger *logger.Logger,
) *SearchService {
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	if cfg.PerTypeLimit < 1 {
		cfg.PerTypeLimit = DefaultConfig().PerTypeLimit
	}
	if clientCache == nil {
		clientCache = cache.NewClientCache(nil, 0, "", logger)
	}
	return &SearchService{
		collector:  content.NewCollector(source, cfg.PerTypeLimit, logger),
		normalizer: normalize.NewNormalizer(logger),
		cache:      clientCache,
		validator:  validator.New(),
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.WithComponent("search-service"),
	}
}

// SetClock replaces the time source
func (s *SearchService) SetClock(now func() time.Time) {
	s.now = now
}

// GetInitialContent returns the first page of the browse state
func (s *SearchService) GetInitialContent(ctx context.Context, limit int) *Response {
	return s.Search(ctx, domain.SearchFilters{}, Options{Page: 1, Limit: limit})
}

// Search filters, ranks and paginates the current snapshot. Failures are
// reported in Response.Error alongside an empty result. Filters run in the
// form their URL state carries, so Response.Query reproduces the result.
func (s *SearchService) Search(ctx context.Context, filters domain.SearchFilters, opts Options) (resp *Response) {
	filters = urlstate.Clean(filters)
	opts = s.normalizeOptions(opts)
	resp = s.emptyResponse(filters, opts)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in search", "panic", fmt.Sprint(r))
			resp = s.emptyResponse(filters, opts)
			resp.Error = msgSearchFailed
		}
	}()

	start := s.now()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		resp.Error = advisory(err, msgLoadFailed)
		return resp
	}
	resp.SnapshotID = snap.ID
	resp.Partial = snap.Partial

	items, err := snap.Execute(ctx, filters)
	if err != nil {
		s.logger.Warn("Search execution failed", "query", filters.Search, "error", err)
		resp.Error = advisory(err, msgSearchFailed)
		return resp
	}

	page := paginate.Paginate(items, opts.Page, opts.Limit)
	resp.Items = page.Items
	resp.Total = page.Total
	resp.HasMore = page.HasMore
	resp.AvailableFilters = facets.Compute(items)

	s.logger.Debug("Search completed",
		"query", filters.Search,
		"results", page.Total,
		"page", opts.Page,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return resp
}

// GetAvailableFilters returns the facet universe of the current snapshot
func (s *SearchService) GetAvailableFilters(ctx context.Context) (f domain.Facets) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic loading filters", "panic", fmt.Sprint(r))
			f = facets.Compute(nil)
		}
	}()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return facets.Compute(nil)
	}
	return snap.Universe
}

// Suggest returns title completions for a partial query
func (s *SearchService) Suggest(ctx context.Context, q string, limit int) (out []search.Suggestion) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in suggest", "panic", fmt.Sprint(r))
			out = []search.Suggestion{}
		}
	}()

	if limit < 1 || limit > s.cfg.MaxLimit {
		limit = 10
	}
	snap, err := s.Snapshot(ctx)
	if err != nil || !snap.Indexed() {
		return []search.Suggestion{}
	}
	return snap.index.Suggest(q, limit)
}

// GetItem returns a single item by content type and slug
func (s *SearchService) GetItem(ctx context.Context, contentType, slug string) (*domain.SearchItem, error) {
	t, err := domain.ParseContentType(contentType)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := snap.Lookup(t, strings.TrimSpace(slug))
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

// ClearCache drops the persisted entries and the resident snapshot; the
// next operation rebuilds from the content repository.
func (s *SearchService) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	if old := s.current.Swap(nil); old != nil {
		s.retire(old)
	}
	s.logger.Info("Search cache cleared")
}

// Refresh rebuilds the snapshot from the content repository, bypassing the cache
func (s *SearchService) Refresh(ctx context.Context) (Stats, error) {
	if _, err := s.reload(ctx, true); err != nil {
		return s.Stats(), err
	}
	return s.Stats(), nil
}

// Stats describes the resident snapshot without loading one
func (s *SearchService) Stats() Stats {
	snap := s.current.Load()
	if snap == nil {
		return Stats{}
	}
	return Stats{
		Loaded:     true,
		SnapshotID: snap.ID,
		CreatedAt:  snap.CreatedAt,
		AgeMs:      snap.Age(s.now()).Milliseconds(),
		Items:      len(snap.Items),
		Indexed:    snap.Indexed(),
		Partial:    snap.Partial,
	}
}

// Close releases the resident snapshot
func (s *SearchService) Close() {
	if old := s.current.Swap(nil); old != nil {
		old.close()
	}
}

// Snapshot returns the resident snapshot, loading one if it is absent or expired
func (s *SearchService) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil && s.fresh(snap) {
		return snap, nil
	}
	return s.reload(ctx, false)
}

func (s *SearchService) fresh(snap *Snapshot) bool {
	ttl := s.cache.TTL()
	if len(snap.Partial) > 0 && partialRetry < ttl {
		ttl = partialRetry
	}
	age := snap.Age(s.now())
	return age >= 0 && age < ttl
}

// reload runs one shared load per kind; callers whose context ends stop
// waiting but do not cancel the load itself
func (s *SearchService) reload(ctx context.Context, force bool) (*Snapshot, error) {
	key := "load"
	if force {
		key = "refresh"
	}
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SearchService) load(ctx context.Context, force bool) (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic loading snapshot", "panic", fmt.Sprint(r))
			snap, err = nil, fmt.Errorf("%w: %v", domain.ErrSnapshotUnavailable, r)
		}
	}()

	if !force {
		if entry, ok := s.cache.LoadContent(ctx); ok {
			universe := s.cachedUniverse(ctx, entry)
			snap = s.build(entry.SnapshotID, entry.CreatedAt, entry.Items, universe, entry.Partial)
			s.publish(snap)
			s.logger.Info("Loaded snapshot from cache", "snapshot_id", snap.ID, "items", len(snap.Items))
			return snap, nil
		}
	}

	start := s.now()
	batches := s.collector.Collect(ctx)
	failed := content.Failed(batches)
	items := s.normalizer.Normalize(batches)

	if len(failed) == len(batches) {
		if prev := s.current.Load(); prev != nil {
			s.logger.Warn("Every content fetch failed, keeping previous snapshot", "snapshot_id", prev.ID)
			return prev, nil
		}
	}

	snap = s.build(uuid.NewString(), start, items, facets.Extract(items), failed)
	if len(failed) == 0 {
		s.cache.SaveContent(ctx, &cache.ContentEntry{
			SnapshotID: snap.ID,
			CreatedAt:  snap.CreatedAt,
			Items:      snap.Items,
		})
		s.cache.SaveFacets(ctx, &cache.FacetEntry{SnapshotID: snap.ID, Facets: snap.Universe})
	}
	s.publish(snap)

	fields := []interface{}{
		"snapshot_id", snap.ID,
		"items", len(snap.Items),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	}
	if len(failed) > 0 {
		s.logger.Warn("Published partial snapshot", append(fields, "failed", contentTypes(failed))...)
	} else {
		s.logger.Info("Published snapshot", fields...)
	}
	return snap, nil
}

// cachedUniverse reuses the cached facet universe only when it belongs to entry
func (s *SearchService) cachedUniverse(ctx context.Context, entry *cache.ContentEntry) domain.Facets {
	if f, ok := s.cache.LoadFacets(ctx); ok && f.SnapshotID == entry.SnapshotID {
		return f.Facets
	}
	universe := facets.Extract(entry.Items)
	s.cache.SaveFacets(ctx, &cache.FacetEntry{SnapshotID: entry.SnapshotID, Facets: universe})
	return universe
}

func (s *SearchService) build(id string, createdAt time.Time, items []domain.SearchItem, universe domain.Facets, partial []domain.ContentType) *Snapshot {
	var index search.Index
	fi, err := search.BuildFuzzyIndex(items, s.cfg.Index, s.logger.WithSnapshot(id))
	if err != nil {
		s.logger.Error("Failed to build search index, text search disabled", "snapshot_id", id, "error", err)
	} else {
		index = fi
	}
	return newSnapshot(id, createdAt, items, universe, partial, index)
}

func (s *SearchService) publish(snap *Snapshot) {
	if old := s.current.Swap(snap); old != nil && old != snap {
		s.retire(old)
	}
}

func (s *SearchService) retire(old *Snapshot) {
	time.AfterFunc(retireDelay, old.close)
}

func (s *SearchService) normalizeOptions(opts Options) Options {
	if err := s.validator.Validate(opts); err != nil {
		if opts.Page < 1 {
			opts.Page = 1
		}
		if opts.Limit < 1 {
			opts.Limit = s.cfg.DefaultLimit
		}
	}
	if opts.Limit > s.cfg.MaxLimit {
		opts.Limit = s.cfg.MaxLimit
	}
	return opts
}

func (s *SearchService) emptyResponse(filters domain.SearchFilters, opts Options) *Response {
	return &Response{
		Items:            []domain.SearchItem{},
		Page:             opts.Page,
		Limit:            opts.Limit,
		AvailableFilters: facets.Compute(nil),
		Query:            urlstate.Encode(filters),
	}
}

func advisory(err error, fallback string) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return msgCancelled
	}
	return fallback
}

func contentTypes(types []domain.ContentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
