package normalize

import (
	"github.com/airwaves-fm/stationsearch/internal/content"
	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Normalizer maps raw content records into SearchItems
type Normalizer struct {
	logger *logger.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{logger: log.WithComponent("normalizer")}
}

// Normalize flattens batches into one item sequence in batch order. Failed
// batches contribute nothing. Items without a title and repeated IDs are
// dropped.
func (n *Normalizer) Normalize(batches []content.Batch) []domain.SearchItem {
	total := 0
	for _, b := range batches {
		total += len(b.Records)
	}

	items := make([]domain.SearchItem, 0, total)
	seen := make(map[string]struct{}, total)
	dropped := 0

	for _, b := range batches {
		if b.Err != nil {
			continue
		}
		for _, rec := range b.Records {
			item, ok := Item(rec)
			if !ok {
				dropped++
				continue
			}
			if _, dup := seen[item.ID]; dup {
				dropped++
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
	}

	if dropped > 0 {
		n.logger.Debug("Dropped unusable records", "count", dropped)
	}
	return items
}

// Item normalizes a single record. ok is false for records that cannot be
// displayed: nil, untitled, or without an ID.
func Item(rec content.Record) (item domain.SearchItem, ok bool) {
	if rec == nil {
		return item, false
	}

	switch r := rec.(type) {
	case *content.EpisodeRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Date = firstNonEmpty(r.BroadcastDate, r.PublishedAt)
		item.Description = StripHTML(r.Description)
		item.Excerpt = StripHTML(r.Subtitle)
		item.Genres = facet(r.Genres, domain.FacetGenre)
		item.Locations = facet(r.Locations, domain.FacetLocation)
		item.Hosts = facet(r.Hosts, domain.FacetHost)
		item.Takeovers = facet(r.Takeovers, domain.FacetTakeover)
	case *content.PostRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Date = firstNonEmpty(r.Date, r.PublishedAt)
		item.Description = MarkdownToText(r.Content)
		item.Excerpt = StripHTML(r.Excerpt)
		item.Genres = facet(r.Categories, domain.FacetGenre)
		item.Locations = facet(r.Locations, domain.FacetLocation)
	case *content.VideoRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Date = firstNonEmpty(r.Date, r.PublishedAt)
		item.Description = StripHTML(r.Description)
		item.Genres = facet(r.Genres, domain.FacetGenre)
		item.Hosts = facet(r.Hosts, domain.FacetHost)
	case *content.HostRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Description = StripHTML(r.Description)
		item.Genres = facet(r.Genres, domain.FacetGenre)
		item.Locations = facet(r.Locations, domain.FacetLocation)
	case *content.TakeoverRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Date = firstNonEmpty(r.DateStart, r.PublishedAt)
		item.Description = StripHTML(r.Description)
		item.Hosts = facet(r.Hosts, domain.FacetHost)
	case *content.EventRecord:
		if r == nil {
			return item, false
		}
		item = base(r, &r.Media)
		item.Date = r.Date
		item.Description = StripHTML(r.Description)
		item.Excerpt = CollapseSpace(r.Venue)
		item.Genres = facet(r.Genres, domain.FacetGenre)
		item.Locations = facet(r.Locations, domain.FacetLocation)
	default:
		return item, false
	}

	if item.Title == "" || item.ID == "" {
		return domain.SearchItem{}, false
	}
	fillEmptyFacets(&item)
	return item, true
}

func base(rec content.Record, media *content.Media) domain.SearchItem {
	obj := rec.Base()
	return domain.SearchItem{
		ID:          obj.ID,
		Title:       StripHTML(obj.Title),
		Slug:        obj.Slug,
		Image:       BestImage(media),
		ContentType: rec.ContentType(),
		Metadata:    obj.Metadata,
	}
}

// BestImage resolves the image by priority: external URL, primary asset, thumbnail
func BestImage(m *content.Media) string {
	if m == nil {
		return ""
	}
	if m.ExternalImageURL != "" {
		return m.ExternalImageURL
	}
	if img := m.Image.Best(); img != "" {
		return img
	}
	return m.Thumbnail.Best()
}

// facet maps related records to filter items, dropping untitled, unslugged
// and repeated entries
func facet(related []content.Related, facetType string) []domain.FilterItem {
	out := make([]domain.FilterItem, 0, len(related))
	seen := make(map[string]struct{}, len(related))
	for _, r := range related {
		title := CollapseSpace(r.Title)
		if title == "" || r.Slug == "" {
			continue
		}
		if _, dup := seen[r.Slug]; dup {
			continue
		}
		seen[r.Slug] = struct{}{}
		id := r.ID
		if id == "" {
			id = r.Slug
		}
		out = append(out, domain.FilterItem{
			ID:    id,
			Slug:  r.Slug,
			Title: title,
			Type:  facetType,
		})
	}
	return out
}

func fillEmptyFacets(item *domain.SearchItem) {
	if item.Genres == nil {
		item.Genres = []domain.FilterItem{}
	}
	if item.Locations == nil {
		item.Locations = []domain.FilterItem{}
	}
	if item.Hosts == nil {
		item.Hosts = []domain.FilterItem{}
	}
	if item.Takeovers == nil {
		item.Takeovers = []domain.FilterItem{}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
