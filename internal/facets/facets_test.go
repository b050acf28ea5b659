package facets

import (
	"testing"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

func genre(slug, title string) domain.FilterItem {
	return domain.FilterItem{ID: "g-" + slug, Slug: slug, Title: title, Type: domain.FacetGenre}
}

func location(slug, title string) domain.FilterItem {
	return domain.FilterItem{ID: "l-" + slug, Slug: slug, Title: title, Type: domain.FacetLocation}
}

func episode(id string, genres ...domain.FilterItem) domain.SearchItem {
	return domain.SearchItem{
		ID:          id,
		Title:       id,
		Slug:        id,
		ContentType: domain.ContentTypeEpisodes,
		Genres:      genres,
		Locations:   []domain.FilterItem{},
		Hosts:       []domain.FilterItem{},
		Takeovers:   []domain.FilterItem{},
	}
}

func counts(values []domain.FilterItem) map[string]int {
	out := make(map[string]int, len(values))
	for _, v := range values {
		out[v.Slug] = v.CountValue()
	}
	return out
}

func TestComputeJazzScenario(t *testing.T) {
	jazz, dub, fusion := genre("jazz", "Jazz"), genre("dub", "Dub"), genre("fusion", "Fusion")
	all := []domain.SearchItem{
		episode("jazz-night", jazz),
		episode("dub-explorations", dub),
		episode("jazz-fusion-special", jazz, fusion),
	}

	// candidates after filtering on jazz
	got := Compute([]domain.SearchItem{all[0], all[2]})

	if len(got.Genres) != 2 {
		t.Fatalf("expected 2 genre values, got %+v", got.Genres)
	}
	if got.Genres[0].Slug != "jazz" || got.Genres[0].CountValue() != 2 {
		t.Errorf("first genre = %+v, want jazz:2", got.Genres[0])
	}
	if got.Genres[1].Slug != "fusion" || got.Genres[1].CountValue() != 1 {
		t.Errorf("second genre = %+v, want fusion:1", got.Genres[1])
	}
	if _, ok := Lookup(&got, domain.FacetGenre, "dub"); ok {
		t.Error("dub must be absent from the genre facet")
	}
}

func TestComputeOrderingTiesByTitle(t *testing.T) {
	items := []domain.SearchItem{
		episode("a", genre("zouk", "Zouk"), genre("ambient", "Ambient")),
		episode("b", genre("zouk", "Zouk"), genre("ambient", "Ambient"), genre("bass", "Bass")),
	}
	got := Compute(items).Genres

	want := []string{"ambient", "zouk", "bass"}
	if len(got) != len(want) {
		t.Fatalf("got %d values", len(got))
	}
	for i, slug := range want {
		if got[i].Slug != slug {
			t.Errorf("position %d = %s, want %s", i, got[i].Slug, slug)
		}
	}
}

func TestContentTypePivotsAlwaysPresent(t *testing.T) {
	got := Compute([]domain.SearchItem{episode("only")})

	c := counts(got.ContentTypes)
	for _, pivot := range domain.PivotContentTypes {
		if _, ok := c[string(pivot)]; !ok {
			t.Errorf("pivot %s missing", pivot)
		}
	}
	if c["episodes"] != 1 {
		t.Errorf("episodes count = %d", c["episodes"])
	}
	if c["posts"] != 0 {
		t.Errorf("posts count = %d", c["posts"])
	}
	if _, ok := c["events"]; ok {
		t.Error("events should only appear when present")
	}
	if got.ContentTypes[0].Slug != "episodes" {
		t.Errorf("highest count should sort first, got %s", got.ContentTypes[0].Slug)
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil)
	if len(got.Genres) != 0 || len(got.Locations) != 0 || len(got.Hosts) != 0 || len(got.Takeovers) != 0 {
		t.Errorf("expected empty item facets, got %+v", got)
	}
	if len(got.ContentTypes) != len(domain.PivotContentTypes) {
		t.Errorf("expected %d content types, got %d", len(domain.PivotContentTypes), len(got.ContentTypes))
	}
}

func TestComputeEventsAppearWhenPresent(t *testing.T) {
	ev := episode("gig")
	ev.ContentType = domain.ContentTypeEvents
	got := counts(Compute([]domain.SearchItem{ev}).ContentTypes)
	if got["events"] != 1 {
		t.Errorf("events count = %d", got["events"])
	}
}

func TestMonotonicityOnSubset(t *testing.T) {
	london, lagos := location("london", "London"), location("lagos", "Lagos")
	jazz, dub := genre("jazz", "Jazz"), genre("dub", "Dub")

	all := []domain.SearchItem{
		episode("1", jazz), episode("2", jazz, dub), episode("3", dub), episode("4", jazz),
	}
	all[0].Locations = []domain.FilterItem{london}
	all[1].Locations = []domain.FilterItem{lagos}
	all[2].Locations = []domain.FilterItem{london}
	all[3].Locations = []domain.FilterItem{london, lagos}

	loose := Compute(all)
	var tight []domain.SearchItem
	for _, it := range all {
		if domain.HasAnySlug(it.Locations, map[string]struct{}{"london": {}}) {
			tight = append(tight, it)
		}
	}
	strict := Compute(tight)

	for _, cat := range []string{domain.FacetGenre, domain.FacetLocation, domain.FacetContentType} {
		before := counts(loose.Category(cat))
		for slug, n := range counts(strict.Category(cat)) {
			if n > before[slug] {
				t.Errorf("%s/%s grew from %d to %d", cat, slug, before[slug], n)
			}
		}
	}
}

func TestExtractMatchesCompute(t *testing.T) {
	items := []domain.SearchItem{episode("a", genre("jazz", "Jazz"))}
	a, b := Extract(items), Compute(items)
	if len(a.Genres) != len(b.Genres) || a.Genres[0].CountValue() != b.Genres[0].CountValue() {
		t.Error("universe should count over the whole snapshot")
	}
}
