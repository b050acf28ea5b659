package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/cache"
	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/internal/urlstate"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "text")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func rel(slug, title string) content.Related {
	return content.Related{ID: slug, Slug: slug, Title: title}
}

func episode(id, title, date string, genres ...content.Related) *content.EpisodeRecord {
	return &content.EpisodeRecord{
		Object:        content.Object{ID: id, Slug: id, Title: title},
		BroadcastDate: date,
		Genres:        genres,
	}
}

// fakeSource serves fixed records and counts fetches
type fakeSource struct {
	mu        sync.Mutex
	episodes  []*content.EpisodeRecord
	posts     []*content.PostRecord
	videos    []*content.VideoRecord
	hosts     []*content.HostRecord
	takeovers []*content.TakeoverRecord
	fail      map[domain.ContentType]bool
	panicOn   domain.ContentType
	fetches   atomic.Int32
	delay     time.Duration
}

func (f *fakeSource) check(t domain.ContentType) error {
	if t == domain.ContentTypeEpisodes {
		f.fetches.Add(1)
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
	}
	if f.panicOn == t {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[t] {
		return errors.New("upstream unavailable")
	}
	return nil
}

func (f *fakeSource) setFail(types ...domain.ContentType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = make(map[domain.ContentType]bool)
	for _, t := range types {
		f.fail[t] = true
	}
}

func (f *fakeSource) FetchEpisodes(_ context.Context, _ content.Query) ([]*content.EpisodeRecord, error) {
	if err := f.check(domain.ContentTypeEpisodes); err != nil {
		return nil, err
	}
	return f.episodes, nil
}

func (f *fakeSource) FetchPosts(_ context.Context, _ content.Query) ([]*content.PostRecord, error) {
	if err := f.check(domain.ContentTypePosts); err != nil {
		return nil, err
	}
	return f.posts, nil
}

func (f *fakeSource) FetchVideos(_ context.Context, _ content.Query) ([]*content.VideoRecord, error) {
	if err := f.check(domain.ContentTypeVideos); err != nil {
		return nil, err
	}
	return f.videos, nil
}

func (f *fakeSource) FetchHosts(_ context.Context, _ content.Query) ([]*content.HostRecord, error) {
	if err := f.check(domain.ContentTypeHostsSeries); err != nil {
		return nil, err
	}
	return f.hosts, nil
}

func (f *fakeSource) FetchTakeovers(_ context.Context, _ content.Query) ([]*content.TakeoverRecord, error) {
	if err := f.check(domain.ContentTypeTakeovers); err != nil {
		return nil, err
	}
	return f.takeovers, nil
}

func jazzSource() *fakeSource {
	jazz := rel("jazz", "Jazz")
	return &fakeSource{
		episodes: []*content.EpisodeRecord{
			episode("jazz-night", "Jazz Night", "2024-01-03", jazz),
			episode("dub-explorations", "Dub Explorations", "2024-01-05", rel("dub", "Dub")),
			episode("jazz-fusion-special", "Jazz Fusion Special", "2024-01-01", jazz, rel("fusion", "Fusion")),
		},
		posts: []*content.PostRecord{{
			Object:  content.Object{ID: "manifesto", Slug: "manifesto", Title: "Station Manifesto"},
			Content: "# Why\n\nWe play **records** for Oscar Peterson fans.",
		}},
		videos: []*content.VideoRecord{{
			Object: content.Object{ID: "peterson", Slug: "peterson-sessions", Title: "Peterson Sessions"},
			Date:   "2023-12-20",
		}},
	}
}

func newTestService(t *testing.T, src content.Source, store cache.Store) *SearchService {
	t.Helper()
	log := testLogger(t)
	cc := cache.NewClientCache(store, cache.DefaultTTL, "test", log)
	svc := NewSearchService(src, cc, DefaultConfig(), log)
	t.Cleanup(svc.Close)
	return svc
}

func titles(items []domain.SearchItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func count(values []domain.FilterItem, slug string) (int, bool) {
	for _, v := range values {
		if v.Slug == slug {
			return v.CountValue(), true
		}
	}
	return 0, false
}

func TestSearchGenreScenario(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	resp := svc.Search(context.Background(), domain.SearchFilters{Genres: []string{"jazz"}}, Options{Page: 1, Limit: 10})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}

	got := titles(resp.Items)
	if len(got) != 2 || got[0] != "Jazz Night" || got[1] != "Jazz Fusion Special" {
		t.Fatalf("unexpected results %v", got)
	}
	if resp.Total != 2 || resp.HasMore {
		t.Errorf("total=%d hasMore=%v", resp.Total, resp.HasMore)
	}

	genres := resp.AvailableFilters.Genres
	if n, _ := count(genres, "jazz"); n != 2 {
		t.Errorf("jazz count = %d", n)
	}
	if n, _ := count(genres, "fusion"); n != 1 {
		t.Errorf("fusion count = %d", n)
	}
	if _, ok := count(genres, "dub"); ok {
		t.Error("dub must be absent")
	}
	if len(resp.AvailableFilters.ContentTypes) != len(domain.PivotContentTypes) {
		t.Errorf("content types = %+v", resp.AvailableFilters.ContentTypes)
	}
	if resp.Query != "genre=jazz" {
		t.Errorf("query = %q", resp.Query)
	}
}

func TestSearchRunsCleanedFilters(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	resp := svc.Search(context.Background(), domain.SearchFilters{Genres: []string{" jazz ", "jazz", ""}}, Options{Page: 1, Limit: 10})
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	if resp.Query != "genre=jazz" {
		t.Errorf("query = %q", resp.Query)
	}
	if again := svc.Search(context.Background(), urlstate.ParseQuery(resp.Query), Options{Page: 1, Limit: 10}); again.Total != resp.Total {
		t.Errorf("query state should reproduce the result: %d vs %d", again.Total, resp.Total)
	}
}

func TestGetInitialContentBrowseOrder(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	resp := svc.GetInitialContent(context.Background(), 3)
	if resp.Total != 5 || !resp.HasMore || len(resp.Items) != 3 {
		t.Fatalf("total=%d hasMore=%v items=%d", resp.Total, resp.HasMore, len(resp.Items))
	}
	got := titles(resp.Items)
	want := []string{"Dub Explorations", "Jazz Night", "Jazz Fusion Special"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPaginationCoverage(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)
	ctx := context.Background()

	full := svc.Search(ctx, domain.SearchFilters{}, Options{Page: 1, Limit: 100})

	var collected []domain.SearchItem
	for page := 1; ; page++ {
		resp := svc.Search(ctx, domain.SearchFilters{}, Options{Page: page, Limit: 2})
		collected = append(collected, resp.Items...)
		if !resp.HasMore {
			break
		}
		if page > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(collected) != len(full.Items) {
		t.Fatalf("collected %d items, want %d", len(collected), len(full.Items))
	}
	seen := make(map[string]bool)
	for i := range collected {
		if collected[i].ID != full.Items[i].ID {
			t.Errorf("position %d: %s != %s", i, collected[i].ID, full.Items[i].ID)
		}
		if seen[collected[i].ID] {
			t.Errorf("duplicate %s", collected[i].ID)
		}
		seen[collected[i].ID] = true
	}
}

func TestSearchFuzzyText(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	resp := svc.Search(context.Background(), domain.SearchFilters{Search: "Petersn"}, Options{Page: 1, Limit: 10})
	if len(resp.Items) == 0 {
		t.Fatal("expected fuzzy match")
	}
	if resp.Items[0].Slug != "peterson-sessions" {
		t.Errorf("top hit = %s", resp.Items[0].Slug)
	}

	// facets follow the ranked set
	for _, it := range resp.Items {
		if it.ContentType == domain.ContentTypeEpisodes {
			t.Errorf("unexpected episode %s in results", it.Title)
		}
	}
	if _, ok := count(resp.AvailableFilters.Genres, "jazz"); ok {
		t.Error("facets should be computed over the ranked result set")
	}
}

func TestOptionsFallBackToDefaults(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	resp := svc.Search(context.Background(), domain.SearchFilters{}, Options{Page: -3, Limit: 0})
	if resp.Page != 1 || resp.Limit != DefaultConfig().DefaultLimit {
		t.Errorf("page=%d limit=%d", resp.Page, resp.Limit)
	}

	resp = svc.Search(context.Background(), domain.SearchFilters{}, Options{Page: 1, Limit: 5000})
	if resp.Limit != DefaultConfig().MaxLimit {
		t.Errorf("limit = %d", resp.Limit)
	}

	resp = svc.Search(context.Background(), domain.SearchFilters{}, Options{Page: 99, Limit: 10})
	if len(resp.Items) != 0 || resp.HasMore || resp.Total != 5 {
		t.Errorf("beyond-end page: items=%d hasMore=%v total=%d", len(resp.Items), resp.HasMore, resp.Total)
	}
}

func TestPartialSnapshotOnFetchFailure(t *testing.T) {
	src := jazzSource()
	src.setFail(domain.ContentTypeVideos)
	store := cache.NewMemoryStore(4, time.Hour)
	svc := newTestService(t, src, store)

	resp := svc.GetInitialContent(context.Background(), 10)
	if resp.Error != "" {
		t.Fatalf("fetch failure must not surface as an error: %s", resp.Error)
	}
	if resp.Total != 4 {
		t.Errorf("total = %d, want 4", resp.Total)
	}
	if len(resp.Partial) != 1 || resp.Partial[0] != domain.ContentTypeVideos {
		t.Errorf("partial = %v", resp.Partial)
	}

	// partial snapshots are not persisted
	if _, err := store.Get(context.Background(), "test:content-snapshot"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("partial snapshot should not be cached, got %v", err)
	}
}

func TestAllFetchesFailDegradesToEmpty(t *testing.T) {
	src := jazzSource()
	src.setFail(domain.ContentTypeEpisodes, domain.ContentTypePosts, domain.ContentTypeVideos,
		domain.ContentTypeHostsSeries, domain.ContentTypeTakeovers)
	svc := newTestService(t, src, nil)

	resp := svc.GetInitialContent(context.Background(), 10)
	if resp.Total != 0 || len(resp.Items) != 0 || resp.HasMore {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if len(resp.AvailableFilters.ContentTypes) != len(domain.PivotContentTypes) {
		t.Error("content type pivots must still be offered")
	}
}

func TestRefreshKeepsSnapshotWhenEverythingFails(t *testing.T) {
	src := jazzSource()
	svc := newTestService(t, src, nil)
	ctx := context.Background()

	first := svc.GetInitialContent(ctx, 10)
	src.setFail(domain.ContentTypeEpisodes, domain.ContentTypePosts, domain.ContentTypeVideos,
		domain.ContentTypeHostsSeries, domain.ContentTypeTakeovers)

	stats, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if stats.SnapshotID != first.SnapshotID || stats.Items != 5 {
		t.Errorf("previous snapshot should be kept, got %+v", stats)
	}
}

func TestPanicInFetchIsContained(t *testing.T) {
	src := jazzSource()
	src.panicOn = domain.ContentTypePosts
	svc := newTestService(t, src, nil)

	resp := svc.GetInitialContent(context.Background(), 10)
	if resp.Total != 4 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestSnapshotServedFromCache(t *testing.T) {
	store := cache.NewMemoryStore(4, time.Hour)
	ctx := context.Background()

	src := jazzSource()
	first := newTestService(t, src, store)
	resp := first.GetInitialContent(ctx, 10)
	if src.fetches.Load() != 1 {
		t.Fatalf("fetches = %d", src.fetches.Load())
	}

	second := newTestService(t, src, store)
	cached := second.GetInitialContent(ctx, 10)
	if src.fetches.Load() != 1 {
		t.Errorf("second service should load from cache, fetches = %d", src.fetches.Load())
	}
	if cached.SnapshotID != resp.SnapshotID || cached.Total != resp.Total {
		t.Errorf("cached snapshot differs: %s/%d vs %s/%d", cached.SnapshotID, cached.Total, resp.SnapshotID, resp.Total)
	}
	if n, _ := count(second.GetAvailableFilters(ctx).Genres, "jazz"); n != 2 {
		t.Errorf("cached universe jazz = %d", n)
	}
}

func TestMismatchedFacetUniverseIsRecomputed(t *testing.T) {
	store := cache.NewMemoryStore(4, time.Hour)
	ctx := context.Background()
	log := testLogger(t)
	cc := cache.NewClientCache(store, cache.DefaultTTL, "test", log)

	src := jazzSource()
	first := NewSearchService(src, cc, DefaultConfig(), log)
	first.GetInitialContent(ctx, 1)
	first.Close()

	// a universe from some other snapshot
	cc.SaveFacets(ctx, &cache.FacetEntry{SnapshotID: "other", Facets: domain.Facets{
		Genres: []domain.FilterItem{{Slug: "ghost", Title: "Ghost"}},
	}})

	second := newTestService(t, src, store)
	universe := second.GetAvailableFilters(ctx)
	if _, ok := count(universe.Genres, "ghost"); ok {
		t.Error("stale universe must not be served")
	}
	if n, _ := count(universe.Genres, "jazz"); n != 2 {
		t.Errorf("jazz = %d", n)
	}
}

func TestSnapshotExpiresAfterTTL(t *testing.T) {
	src := jazzSource()
	svc := newTestService(t, src, nil)
	ctx := context.Background()

	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	svc.GetInitialContent(ctx, 1)
	now = now.Add(10 * time.Minute)
	svc.GetInitialContent(ctx, 1)
	if src.fetches.Load() != 1 {
		t.Fatalf("snapshot inside TTL reloaded, fetches = %d", src.fetches.Load())
	}

	now = now.Add(6 * time.Minute)
	svc.GetInitialContent(ctx, 1)
	if src.fetches.Load() != 2 {
		t.Errorf("expired snapshot not reloaded, fetches = %d", src.fetches.Load())
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	src := jazzSource()
	src.delay = 50 * time.Millisecond
	svc := newTestService(t, src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.GetInitialContent(context.Background(), 5)
		}()
	}
	wg.Wait()

	if src.fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", src.fetches.Load())
	}
}

func TestCancelledContextIsAdvisory(t *testing.T) {
	src := jazzSource()
	src.delay = 200 * time.Millisecond
	svc := newTestService(t, src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	resp := svc.GetInitialContent(ctx, 5)
	if resp.Error != msgCancelled {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Items == nil {
		t.Error("items must be an empty slice, not nil")
	}
}

func TestClearCacheForcesRebuild(t *testing.T) {
	store := cache.NewMemoryStore(4, time.Hour)
	src := jazzSource()
	svc := newTestService(t, src, store)
	ctx := context.Background()

	first := svc.GetInitialContent(ctx, 1)
	svc.ClearCache(ctx)
	if svc.Stats().Loaded {
		t.Error("snapshot should be dropped")
	}

	second := svc.GetInitialContent(ctx, 1)
	if second.SnapshotID == first.SnapshotID {
		t.Error("expected a new snapshot")
	}
	if src.fetches.Load() != 2 {
		t.Errorf("fetches = %d", src.fetches.Load())
	}
}

func TestGetItem(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)
	ctx := context.Background()

	item, err := svc.GetItem(ctx, "episodes", "jazz-night")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Title != "Jazz Night" {
		t.Errorf("title = %s", item.Title)
	}

	if _, err := svc.GetItem(ctx, "videos", "jazz-night"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := svc.GetItem(ctx, "podcasts", "x"); !errors.Is(err, domain.ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)

	got := svc.Suggest(context.Background(), "jazz", 5)
	if len(got) != 2 {
		t.Fatalf("suggestions = %+v", got)
	}
	if got := svc.Suggest(context.Background(), "", 5); len(got) != 0 {
		t.Errorf("empty prefix should suggest nothing, got %+v", got)
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)
	if svc.Stats().Loaded {
		t.Fatal("nothing loaded yet")
	}
	svc.GetInitialContent(context.Background(), 1)
	stats := svc.Stats()
	if !stats.Loaded || stats.Items != 5 || !stats.Indexed || stats.SnapshotID == "" {
		t.Errorf("stats = %+v", stats)
	}
}
