package search

import (
	"context"
	"sort"
	"strings"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// Executor applies structural filters and fuzzy ranking to a snapshot
type Executor struct {
	index Index
}

// NewExecutor creates an executor ranking through index. A nil index
// disables text search; filters still apply.
func NewExecutor(index Index) *Executor {
	return &Executor{index: index}
}

// Execute returns the items matching filters. With search text the order is
// fuzzy rank; otherwise date descending with undated items last. The
// returned slice is newly allocated.
func (e *Executor) Execute(ctx context.Context, items []domain.SearchItem, filters domain.SearchFilters) ([]domain.SearchItem, error) {
	text := strings.TrimSpace(filters.Search)

	if text == "" {
		out := Filter(items, filters)
		SortByDate(out)
		return out, nil
	}
	if e.index == nil {
		return []domain.SearchItem{}, nil
	}

	hits, err := e.index.Search(ctx, text)
	if err != nil {
		return nil, err
	}

	// the index covers the whole snapshot; intersect with the structural set
	out := make([]domain.SearchItem, 0, len(hits))
	m := newMatcher(filters)
	for _, h := range hits {
		if m.match(h.Item) {
			out = append(out, *h.Item)
		}
	}
	return out, nil
}

// Filter keeps items passing the content type and facet constraints, in input order
func Filter(items []domain.SearchItem, filters domain.SearchFilters) []domain.SearchItem {
	m := newMatcher(filters)
	out := make([]domain.SearchItem, 0, len(items))
	for i := range items {
		if m.match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// SortByDate orders items newest first. Undated items follow all dated
// ones and keep their relative order.
func SortByDate(items []domain.SearchItem) {
	type key struct {
		unix  int64
		dated bool
	}
	keys := make(map[string]key, len(items))
	for i := range items {
		if t, ok := items[i].ParsedDate(); ok {
			keys[items[i].ID] = key{unix: t.UnixNano(), dated: true}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := keys[items[i].ID], keys[items[j].ID]
		if ki.dated != kj.dated {
			return ki.dated
		}
		return ki.unix > kj.unix
	})
}

// matcher holds the filter sets, built once per execution
type matcher struct {
	types  map[domain.ContentType]struct{}
	facets map[string]map[string]struct{}
}

func newMatcher(filters domain.SearchFilters) *matcher {
	m := &matcher{facets: make(map[string]map[string]struct{})}
	if len(filters.ContentType) > 0 {
		m.types = make(map[domain.ContentType]struct{}, len(filters.ContentType))
		for _, t := range filters.ContentType {
			m.types[t] = struct{}{}
		}
	}
	for _, facet := range domain.ItemFacets {
		slugs := filters.FacetSlugs(facet)
		if len(slugs) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(slugs))
		for _, s := range slugs {
			set[s] = struct{}{}
		}
		m.facets[facet] = set
	}
	return m
}

// match requires the content type (if constrained) and at least one value
// from every constrained facet
func (m *matcher) match(item *domain.SearchItem) bool {
	if m.types != nil {
		if _, ok := m.types[item.ContentType]; !ok {
			return false
		}
	}
	for facet, set := range m.facets {
		if !domain.HasAnySlug(item.FacetValues(facet), set) {
			return false
		}
	}
	return true
}
