package domain

import (
	"strings"
	"time"
)

// ContentType discriminates the kind of record a SearchItem was built from
type ContentType string

const (
	ContentTypeEpisodes    ContentType = "episodes"
	ContentTypePosts       ContentType = "posts"
	ContentTypeVideos      ContentType = "videos"
	ContentTypeEvents      ContentType = "events"
	ContentTypeTakeovers   ContentType = "takeovers"
	ContentTypeHostsSeries ContentType = "hosts-series"
)

// PivotContentTypes are always offered in the content type facet, even at count 0
var PivotContentTypes = []ContentType{
	ContentTypeEpisodes,
	ContentTypePosts,
	ContentTypeVideos,
	ContentTypeTakeovers,
	ContentTypeHostsSeries,
}

var contentTypeTitles = map[ContentType]string{
	ContentTypeEpisodes:    "Episodes",
	ContentTypePosts:       "Posts",
	ContentTypeVideos:      "Videos",
	ContentTypeEvents:      "Events",
	ContentTypeTakeovers:   "Takeovers",
	ContentTypeHostsSeries: "Hosts & Series",
}

// Valid reports whether t is a known content type
func (t ContentType) Valid() bool {
	_, ok := contentTypeTitles[t]
	return ok
}

// Title returns the display label for the content type
func (t ContentType) Title() string {
	if title, ok := contentTypeTitles[t]; ok {
		return title
	}
	return string(t)
}

// ParseContentType maps a slug to a ContentType
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidContentType
	}
	return t, nil
}

// Facet type names carried on FilterItem.Type
const (
	FacetGenre       = "genre"
	FacetLocation    = "location"
	FacetHost        = "host"
	FacetTakeover    = "takeover"
	FacetContentType = "content-type"
)

// FilterItem is one selectable facet value. Count is set only in facet responses.
type FilterItem struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Count *int   `json:"count,omitempty"`
}

// WithCount returns a copy of the filter item annotated with n
func (f FilterItem) WithCount(n int) FilterItem {
	f.Count = &n
	return f
}

// CountValue returns the count or zero when unset
func (f FilterItem) CountValue() int {
	if f.Count == nil {
		return 0
	}
	return *f.Count
}

// SearchItem is the unified, normalized representation of any content record
type SearchItem struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description,omitempty"`
	Excerpt     string         `json:"excerpt,omitempty"`
	Date        string         `json:"date,omitempty"`
	Image       string         `json:"image,omitempty"`
	ContentType ContentType    `json:"contentType"`
	Genres      []FilterItem   `json:"genres"`
	Locations   []FilterItem   `json:"locations"`
	Hosts       []FilterItem   `json:"hosts"`
	Takeovers   []FilterItem   `json:"takeovers"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParsedDate parses Date. ok is false when Date is empty or unparseable.
func (i *SearchItem) ParsedDate() (t time.Time, ok bool) {
	return ParseDate(i.Date)
}

// ParseDate parses the ISO date shapes the content repository emits
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FacetValues returns the item's entries for the given facet category
func (i *SearchItem) FacetValues(facet string) []FilterItem {
	switch facet {
	case FacetGenre:
		return i.Genres
	case FacetLocation:
		return i.Locations
	case FacetHost:
		return i.Hosts
	case FacetTakeover:
		return i.Takeovers
	}
	return nil
}

// HasAnySlug reports whether any entry in values has a slug in set
func HasAnySlug(values []FilterItem, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v.Slug]; ok {
			return true
		}
	}
	return false
}

// Facets groups facet values by category
type Facets struct {
	ContentTypes []FilterItem `json:"contentTypes"`
	Genres       []FilterItem `json:"genres"`
	Locations    []FilterItem `json:"locations"`
	Hosts        []FilterItem `json:"hosts"`
	Takeovers    []FilterItem `json:"takeovers"`
}

// Category returns the facet list for a facet type name
func (f *Facets) Category(facet string) []FilterItem {
	switch facet {
	case FacetContentType:
		return f.ContentTypes
	case FacetGenre:
		return f.Genres
	case FacetLocation:
		return f.Locations
	case FacetHost:
		return f.Hosts
	case FacetTakeover:
		return f.Takeovers
	}
	return nil
}

// SearchFilters is the structured query shape. Absent slices mean no constraint.
type SearchFilters struct {
	Search      string        `json:"search,omitempty"`
	ContentType []ContentType `json:"contentType,omitempty"`
	Genres      []string      `json:"genres,omitempty"`
	Locations   []string      `json:"locations,omitempty"`
	Hosts       []string      `json:"hosts,omitempty"`
	Takeovers   []string      `json:"takeovers,omitempty"`
}

// IsEmpty reports whether the filters constrain nothing (the browse state)
func (f *SearchFilters) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" &&
		len(f.ContentType) == 0 &&
		len(f.Genres) == 0 &&
		len(f.Locations) == 0 &&
		len(f.Hosts) == 0 &&
		len(f.Takeovers) == 0
}

// FacetSlugs returns the requested slugs for a facet category
func (f *SearchFilters) FacetSlugs(facet string) []string {
	switch facet {
	case FacetGenre:
		return f.Genres
	case FacetLocation:
		return f.Locations
	case FacetHost:
		return f.Hosts
	case FacetTakeover:
		return f.Takeovers
	}
	return nil
}

// ItemFacets lists the per-item facet categories in display order
var ItemFacets = []string{FacetGenre, FacetLocation, FacetHost, FacetTakeover}
