// Package urlstate maps search filters to and from shareable query strings.
package urlstate

import (
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// Query string keys
const (
	KeySearch   = "q"
	KeyType     = "type"
	KeyGenre    = "genre"
	KeyLocation = "location"
	KeyHost     = "host"
	KeyTakeover = "takeover"
)

const (
	maxSearchLen = 200
	maxSlugLen   = 128
	maxValues    = 50
)

// Parse reads filters from query values. It never fails: unknown keys,
// blank or control-character values and unknown content types are ignored.
// Each array key is one occurrence per value.
func Parse(values url.Values) domain.SearchFilters {
	var f domain.SearchFilters
	if raw := values[KeySearch]; len(raw) > 0 {
		f.Search = raw[0]
	}
	for _, s := range values[KeyType] {
		if t, err := domain.ParseContentType(strings.TrimSpace(s)); err == nil {
			f.ContentType = append(f.ContentType, t)
		}
	}
	f.Genres = values[KeyGenre]
	f.Locations = values[KeyLocation]
	f.Hosts = values[KeyHost]
	f.Takeovers = values[KeyTakeover]
	return Clean(f)
}

// Clean returns the filters a URL can carry: search text with collapsed
// whitespace, cut to maxSearchLen runes, and at most maxValues valid,
// distinct slugs per facet. Parse and Serialize both go through it, so
// Parse(Serialize(f)) equals Clean(f) and Clean is idempotent.
func Clean(f domain.SearchFilters) domain.SearchFilters {
	out := domain.SearchFilters{
		Search:    cleanSearch(f.Search),
		Genres:    slugs(f.Genres),
		Locations: slugs(f.Locations),
		Hosts:     slugs(f.Hosts),
		Takeovers: slugs(f.Takeovers),
	}
	seen := make(map[domain.ContentType]struct{}, len(f.ContentType))
	for _, t := range f.ContentType {
		if _, dup := seen[t]; dup || !t.Valid() {
			continue
		}
		seen[t] = struct{}{}
		out.ContentType = append(out.ContentType, t)
	}
	return out
}

func cleanSearch(raw string) string {
	q := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(q) <= maxSearchLen {
		return q
	}
	return strings.TrimSpace(string([]rune(q)[:maxSearchLen]))
}

// ParseQuery parses a raw query string. Malformed encodings are skipped.
func ParseQuery(raw string) domain.SearchFilters {
	raw = strings.TrimPrefix(raw, "?")
	// url.ParseQuery keeps every pair it could decode alongside the error
	values, _ := url.ParseQuery(raw)
	return Parse(values)
}

// Serialize writes filters as query values. Empty keys are omitted; array
// values are sorted so equal filter sets produce equal URLs.
func Serialize(f domain.SearchFilters) url.Values {
	f = Clean(f)
	values := url.Values{}

	if f.Search != "" {
		values.Set(KeySearch, f.Search)
	}

	types := make([]string, 0, len(f.ContentType))
	for _, t := range f.ContentType {
		types = append(types, string(t))
	}
	put(values, KeyType, types)
	put(values, KeyGenre, f.Genres)
	put(values, KeyLocation, f.Locations)
	put(values, KeyHost, f.Hosts)
	put(values, KeyTakeover, f.Takeovers)

	return values
}

// Encode serializes filters to a query string without the leading '?'
func Encode(f domain.SearchFilters) string {
	return Serialize(f).Encode()
}

// Equivalent reports whether two filter sets select the same items,
// ignoring value order and duplicates
func Equivalent(a, b domain.SearchFilters) bool {
	if strings.Join(strings.Fields(a.Search), " ") != strings.Join(strings.Fields(b.Search), " ") {
		return false
	}
	ta := make([]string, 0, len(a.ContentType))
	for _, t := range a.ContentType {
		ta = append(ta, string(t))
	}
	tb := make([]string, 0, len(b.ContentType))
	for _, t := range b.ContentType {
		tb = append(tb, string(t))
	}
	return sameSet(ta, tb) &&
		sameSet(a.Genres, b.Genres) &&
		sameSet(a.Locations, b.Locations) &&
		sameSet(a.Hosts, b.Hosts) &&
		sameSet(a.Takeovers, b.Takeovers)
}

func put(values url.Values, key string, in []string) {
	if len(in) == 0 {
		return
	}
	sorted := append([]string(nil), in...)
	sort.Strings(sorted)
	values[key] = sorted
}

// slugs trims and de-duplicates in first-seen order, keeping at most maxValues
func slugs(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range raw {
		s := strings.TrimSpace(v)
		if s == "" || len(s) > maxSlugLen || !validSlug(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		if len(out) >= maxValues {
			break
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func validSlug(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, v := range a {
		sa[v] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, v := range b {
		sb[v] = struct{}{}
	}
	if len(sa) != len(sb) {
		return false
	}
	for v := range sa {
		if _, ok := sb[v]; !ok {
			return false
		}
	}
	return true
}
