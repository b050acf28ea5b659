package service

import (
	"context"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/internal/search"
)

// Snapshot is one immutable, fully normalized copy of the searchable
// content together with the index and facet universe built from it.
// It is never mutated after publication.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Items     []domain.SearchItem
	Universe  domain.Facets
	// Partial lists the content types whose fetch failed
	Partial []domain.ContentType

	index    search.Index
	executor *search.Executor
	bySlug   map[itemKey]int
}

type itemKey struct {
	contentType domain.ContentType
	slug        string
}

func newSnapshot(id string, createdAt time.Time, items []domain.SearchItem, universe domain.Facets, partial []domain.ContentType, index search.Index) *Snapshot {
	s := &Snapshot{
		ID:        id,
		CreatedAt: createdAt,
		Items:     items,
		Universe:  universe,
		Partial:   partial,
		index:     index,
		executor:  search.NewExecutor(index),
		bySlug:    make(map[itemKey]int, len(items)),
	}
	for i := range items {
		k := itemKey{items[i].ContentType, items[i].Slug}
		if _, exists := s.bySlug[k]; !exists {
			s.bySlug[k] = i
		}
	}
	return s
}

// Execute runs the filter/rank pipeline against this snapshot
func (s *Snapshot) Execute(ctx context.Context, filters domain.SearchFilters) ([]domain.SearchItem, error) {
	return s.executor.Execute(ctx, s.Items, filters)
}

// Indexed reports whether text search is available
func (s *Snapshot) Indexed() bool {
	return s.index != nil
}

// Lookup finds an item by content type and slug
func (s *Snapshot) Lookup(t domain.ContentType, slug string) (domain.SearchItem, bool) {
	i, ok := s.bySlug[itemKey{t, slug}]
	if !ok {
		return domain.SearchItem{}, false
	}
	return s.Items[i], true
}

// Age returns how long ago the snapshot was built
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

func (s *Snapshot) close() {
	if s.index != nil {
		_ = s.index.Close()
	}
}
