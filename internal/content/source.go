package content

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Query bounds a single fetch
type Query struct {
	Limit  int
	Offset int
}

// Source is the content repository as seen by the search engine
type Source interface {
	FetchEpisodes(ctx context.Context, q Query) ([]*EpisodeRecord, error)
	FetchPosts(ctx context.Context, q Query) ([]*PostRecord, error)
	FetchVideos(ctx context.Context, q Query) ([]*VideoRecord, error)
	FetchHosts(ctx context.Context, q Query) ([]*HostRecord, error)
	FetchTakeovers(ctx context.Context, q Query) ([]*TakeoverRecord, error)
}

// EventSource is implemented by sources that also publish events
type EventSource interface {
	FetchEvents(ctx context.Context, q Query) ([]*EventRecord, error)
}

// Batch is the outcome of fetching one content type
type Batch struct {
	Type    domain.ContentType
	Records []Record
	Err     error
}

// Collector fans out one fetch per content type
type Collector struct {
	source Source
	limit  int
	logger *logger.Logger
}

// NewCollector creates a collector fetching up to limit records per type
func NewCollector(source Source, limit int, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		limit:  limit,
		logger: log.WithComponent("content-collector"),
	}
}

// Collect fetches every content type concurrently. A failing type yields a
// Batch with Err set and no records; it never cancels the other fetches.
func (c *Collector) Collect(ctx context.Context) []Batch {
	type fetchFunc func(context.Context, Query) ([]Record, error)

	fetchers := []struct {
		kind  domain.ContentType
		fetch fetchFunc
	}{
		{domain.ContentTypeEpisodes, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(c.source.FetchEpisodes(ctx, q))
		}},
		{domain.ContentTypePosts, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(c.source.FetchPosts(ctx, q))
		}},
		{domain.ContentTypeVideos, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(c.source.FetchVideos(ctx, q))
		}},
		{domain.ContentTypeHostsSeries, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(c.source.FetchHosts(ctx, q))
		}},
		{domain.ContentTypeTakeovers, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(c.source.FetchTakeovers(ctx, q))
		}},
	}
	if events, ok := c.source.(EventSource); ok {
		fetchers = append(fetchers, struct {
			kind  domain.ContentType
			fetch fetchFunc
		}{domain.ContentTypeEvents, func(ctx context.Context, q Query) ([]Record, error) {
			return widen(events.FetchEvents(ctx, q))
		}})
	}

	batches := make([]Batch, len(fetchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fetchers {
		g.Go(func() error {
			start := time.Now()
			records, err := c.safeFetch(gctx, f.fetch)
			if err != nil {
				c.logger.Warn("Content fetch failed", "type", string(f.kind), "error", err)
				batches[i] = Batch{Type: f.kind, Err: fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, f.kind, err)}
				return nil
			}
			c.logger.Debug("Fetched content",
				"type", string(f.kind),
				"count", len(records),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			batches[i] = Batch{Type: f.kind, Records: records}
			return nil
		})
	}
	// fetch goroutines never return an error
	_ = g.Wait()

	return batches
}

func (c *Collector) safeFetch(ctx context.Context, fetch func(context.Context, Query) ([]Record, error)) (records []Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in fetch: %v", r)
		}
	}()
	records, err = fetch(ctx, Query{Limit: c.limit})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return records, err
}

func widen[T Record](records []T, err error) ([]Record, error) {
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out, nil
}

// Failed lists the content types whose fetch errored
func Failed(batches []Batch) []domain.ContentType {
	var failed []domain.ContentType
	for _, b := range batches {
		if b.Err != nil {
			failed = append(failed, b.Type)
		}
	}
	return failed
}
