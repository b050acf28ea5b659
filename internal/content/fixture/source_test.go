package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

const sample = `{
  "episodes": [
    {"id": "ep1", "slug": "jazz-night", "title": "Jazz Night", "broadcast_date": "2024-01-03",
     "image": {"imgix_url": "https://imgix/jazz.jpg"},
     "genres": [{"id": "g1", "slug": "jazz", "title": "Jazz"}]},
    {"id": "ep2", "slug": "dub-explorations", "title": "Dub Explorations", "broadcast_date": "2024-01-05"},
    {"id": "ep3", "slug": "jazz-fusion-special", "title": "Jazz Fusion Special", "broadcast_date": "2024-01-01"}
  ],
  "posts": [{"id": "p1", "slug": "manifesto", "title": "Station Manifesto", "content": "**Hello**"}],
  "events": [{"id": "e1", "slug": "summer-party", "title": "Summer Party", "venue": "The Yard"}]
}`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "text")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func writeFixture(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "content.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestOpenAndFetch(t *testing.T) {
	src, err := Open(writeFixture(t, t.TempDir(), sample))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	episodes, err := src.FetchEpisodes(ctx, content.Query{Limit: 10})
	if err != nil || len(episodes) != 3 {
		t.Fatalf("episodes = %d, %v", len(episodes), err)
	}
	if episodes[0].Image.Best() != "https://imgix/jazz.jpg" || episodes[0].Genres[0].Slug != "jazz" {
		t.Errorf("episode not decoded: %+v", episodes[0])
	}

	page, _ := src.FetchEpisodes(ctx, content.Query{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "ep2" {
		t.Errorf("window = %+v", page)
	}
	beyond, _ := src.FetchEpisodes(ctx, content.Query{Limit: 5, Offset: 10})
	if len(beyond) != 0 {
		t.Errorf("beyond end = %d", len(beyond))
	}

	videos, err := src.FetchVideos(ctx, content.Query{Limit: 10})
	if err != nil || len(videos) != 0 {
		t.Errorf("videos = %d, %v", len(videos), err)
	}
	events, _ := src.FetchEvents(ctx, content.Query{})
	if len(events) != 1 || events[0].Venue != "The Yard" {
		t.Errorf("events = %+v", events)
	}
}

func TestOpenRejectsBadJSON(t *testing.T) {
	if _, err := Open(writeFixture(t, t.TempDir(), "{not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	src := New(&File{Episodes: []*content.EpisodeRecord{{}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.FetchEpisodes(ctx, content.Query{}); err == nil {
		t.Error("expected context error")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, sample)
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := Watch(context.Background(), src, 20*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, testLogger(t))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	writeFixture(t, dir, `{"episodes": [{"id": "ep9", "slug": "new-show", "title": "New Show"}]}`)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback not called")
	}

	episodes, _ := src.FetchEpisodes(context.Background(), content.Query{})
	if len(episodes) != 1 || episodes[0].Title != "New Show" {
		t.Errorf("fixture not reloaded: %+v", episodes)
	}
}

func TestWatcherKeepsContentOnBadWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, sample)
	src, _ := Open(path)

	w, err := Watch(context.Background(), src, 20*time.Millisecond, nil, testLogger(t))
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	writeFixture(t, dir, "{broken")
	time.Sleep(200 * time.Millisecond)

	episodes, _ := src.FetchEpisodes(context.Background(), content.Query{})
	if len(episodes) != 3 {
		t.Errorf("expected previous content to survive, got %d episodes", len(episodes))
	}
}
