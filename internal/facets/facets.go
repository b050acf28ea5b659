// Package facets derives filterable values and their counts from search items.
package facets

import (
	"sort"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// tally accumulates counts for one facet category, keyed by slug
type tally struct {
	order  []string
	values map[string]domain.FilterItem
	counts map[string]int
}

func newTally() *tally {
	return &tally{
		values: make(map[string]domain.FilterItem),
		counts: make(map[string]int),
	}
}

func (t *tally) add(v domain.FilterItem) {
	if _, ok := t.values[v.Slug]; !ok {
		v.Count = nil
		t.values[v.Slug] = v
		t.order = append(t.order, v.Slug)
	}
	t.counts[v.Slug]++
}

// sorted returns values with count > 0 ordered by count desc, title asc, slug asc
func (t *tally) sorted() []domain.FilterItem {
	out := make([]domain.FilterItem, 0, len(t.order))
	for _, slug := range t.order {
		n := t.counts[slug]
		if n == 0 {
			continue
		}
		out = append(out, t.values[slug].WithCount(n))
	}
	sortFacetValues(out)
	return out
}

func sortFacetValues(values []domain.FilterItem) {
	sort.SliceStable(values, func(i, j int) bool {
		ci, cj := values[i].CountValue(), values[j].CountValue()
		if ci != cj {
			return ci > cj
		}
		if values[i].Title != values[j].Title {
			return values[i].Title < values[j].Title
		}
		return values[i].Slug < values[j].Slug
	})
}

// Compute counts facet values over the candidate items. Values with no
// carrier among items are omitted; the pivot content types are always
// present so callers can switch type from any state.
func Compute(items []domain.SearchItem) domain.Facets {
	genres, locations, hosts, takeovers := newTally(), newTally(), newTally(), newTally()
	typeCounts := make(map[domain.ContentType]int)

	for i := range items {
		item := &items[i]
		typeCounts[item.ContentType]++
		for _, v := range item.Genres {
			genres.add(v)
		}
		for _, v := range item.Locations {
			locations.add(v)
		}
		for _, v := range item.Hosts {
			hosts.add(v)
		}
		for _, v := range item.Takeovers {
			takeovers.add(v)
		}
	}

	return domain.Facets{
		ContentTypes: contentTypeFacet(typeCounts),
		Genres:       genres.sorted(),
		Locations:    locations.sorted(),
		Hosts:        hosts.sorted(),
		Takeovers:    takeovers.sorted(),
	}
}

// Extract builds the facet universe of a snapshot: every value any item
// carries, counted over the whole snapshot.
func Extract(items []domain.SearchItem) domain.Facets {
	return Compute(items)
}

func contentTypeFacet(counts map[domain.ContentType]int) []domain.FilterItem {
	out := make([]domain.FilterItem, 0, len(domain.PivotContentTypes)+1)
	pivots := make(map[domain.ContentType]struct{}, len(domain.PivotContentTypes))
	for _, t := range domain.PivotContentTypes {
		pivots[t] = struct{}{}
		out = append(out, contentTypeItem(t, counts[t]))
	}
	// non-pivot types only when they have results
	for t, n := range counts {
		if _, ok := pivots[t]; ok || n == 0 {
			continue
		}
		out = append(out, contentTypeItem(t, n))
	}
	sortFacetValues(out)
	return out
}

func contentTypeItem(t domain.ContentType, n int) domain.FilterItem {
	return domain.FilterItem{
		ID:    string(t),
		Slug:  string(t),
		Title: t.Title(),
		Type:  domain.FacetContentType,
	}.WithCount(n)
}

// Lookup returns the facet value with the given slug in a category
func Lookup(f *domain.Facets, facet, slug string) (domain.FilterItem, bool) {
	for _, v := range f.Category(facet) {
		if v.Slug == slug {
			return v, true
		}
	}
	return domain.FilterItem{}, false
}
