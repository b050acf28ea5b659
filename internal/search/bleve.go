package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sahilm/fuzzy"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// Indexed field names
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldExcerpt     = "excerpt"
	fieldGenres      = "genres"
	fieldHosts       = "hosts"
	fieldTakeovers   = "takeovers"
	fieldLocations   = "locations"
)

// document is the bleve view of a SearchItem
type document struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Excerpt     string   `json:"excerpt"`
	Genres      []string `json:"genres"`
	Hosts       []string `json:"hosts"`
	Takeovers   []string `json:"takeovers"`
	Locations   []string `json:"locations"`
}

func itemToDocument(item *domain.SearchItem) *document {
	return &document{
		Title:       item.Title,
		Description: item.Description,
		Excerpt:     item.Excerpt,
		Genres:      titles(item.Genres),
		Hosts:       titles(item.Hosts),
		Takeovers:   titles(item.Takeovers),
		Locations:   titles(item.Locations),
	}
}

func titles(values []domain.FilterItem) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Title)
	}
	return out
}

type weightedField struct {
	name   string
	weight float64
}

// FuzzyIndex is an in-memory bleve index over one immutable snapshot
type FuzzyIndex struct {
	index     bleve.Index
	items     []domain.SearchItem
	positions map[string]int
	fields    []weightedField
	opts      Options
	memo      *lru.Cache[string, []Hit]
	logger    *logger.Logger
}

// BuildFuzzyIndex indexes items in one batch. items must not be mutated afterwards.
func BuildFuzzyIndex(items []domain.SearchItem, opts Options, log *logger.Logger) (*FuzzyIndex, error) {
	start := time.Now()

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	positions := make(map[string]int, len(items))
	batch := idx.NewBatch()
	for i := range items {
		item := &items[i]
		if _, dup := positions[item.ID]; dup {
			continue
		}
		positions[item.ID] = i
		if err := batch.Index(item.ID, itemToDocument(item)); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index item %s: %w", item.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}

	x := &FuzzyIndex{
		index:     idx,
		items:     items,
		positions: positions,
		fields:    weightedFields(opts.Weights),
		opts:      opts,
		logger:    log.WithComponent("fuzzy-index"),
	}
	if opts.QueryCacheSize > 0 {
		memo, err := lru.New[string, []Hit](opts.QueryCacheSize)
		if err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		x.memo = memo
	}

	x.logger.Debug("Built search index",
		"documents", len(positions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return x, nil
}

// buildIndexMapping maps every searchable field as standard-analyzed text
func buildIndexMapping() mapping.IndexMapping {
	itemMapping := bleve.NewDocumentMapping()
	itemMapping.Dynamic = false

	for _, name := range []string{
		fieldTitle, fieldDescription, fieldExcerpt,
		fieldGenres, fieldHosts, fieldTakeovers, fieldLocations,
	} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = false
		fm.Index = true
		fm.IncludeInAll = false
		fm.IncludeTermVectors = false
		fm.DocValues = false
		itemMapping.AddFieldMappingsAt(name, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name
	indexMapping.DefaultMapping = itemMapping
	return indexMapping
}

func weightedFields(w Weights) []weightedField {
	all := []weightedField{
		{fieldTitle, w.Title},
		{fieldDescription, w.Description},
		{fieldExcerpt, w.Excerpt},
		{fieldGenres, w.Genres},
		{fieldHosts, w.Hosts},
		{fieldTakeovers, w.Takeovers},
		{fieldLocations, w.Locations},
	}
	out := all[:0]
	for _, f := range all {
		if f.weight > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Count returns the number of indexed items
func (x *FuzzyIndex) Count() int {
	return len(x.positions)
}

// Close closes the underlying index
func (x *FuzzyIndex) Close() error {
	if x.index == nil {
		return nil
	}
	if err := x.index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}

// Search runs a weighted fuzzy query over every field. When nothing matches
// it falls back to subsequence matching on titles.
func (x *FuzzyIndex) Search(ctx context.Context, text string) ([]Hit, error) {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if key == "" {
		return nil, nil
	}
	if x.memo != nil {
		if hits, ok := x.memo.Get(key); ok {
			return hits, nil
		}
	}

	hits, err := x.searchBleve(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		hits = x.searchTitles(key)
	}

	if x.memo != nil {
		x.memo.Add(key, hits)
	}
	return hits, nil
}

func (x *FuzzyIndex) searchBleve(ctx context.Context, text string) ([]Hit, error) {
	q := x.buildQuery(text)
	if q == nil || x.Count() == 0 {
		return nil, nil
	}

	startTime := time.Now()
	req := bleve.NewSearchRequestOptions(q, x.Count(), 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, ok := x.positions[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Item: &x.items[pos], Position: pos, Score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})

	hits = x.normalizeScores(hits)

	x.logger.Debug("Search completed",
		"query", text,
		"results", len(hits),
		"time_ms", time.Since(startTime).Milliseconds(),
	)
	return hits, nil
}

// normalizeScores rewrites raw relevance into [0,1] with 0 for the best hit
// and drops hits beyond the threshold
func (x *FuzzyIndex) normalizeScores(hits []Hit) []Hit {
	if len(hits) == 0 {
		return hits
	}
	best := hits[0].Score
	kept := hits[:0]
	for _, h := range hits {
		score := 0.0
		if best > 0 {
			score = 1 - h.Score/best
		}
		if score < 0 {
			score = 0
		}
		if score > x.opts.Threshold {
			continue
		}
		h.Score = score
		kept = append(kept, h)
	}
	return kept
}

// buildQuery ORs, per token and field: an exact term, a fuzzy term, and for
// the last token a prefix term
func (x *FuzzyIndex) buildQuery(text string) query.Query {
	tokens := x.tokens(text)
	if len(tokens) == 0 {
		return nil
	}

	var clauses []query.Query
	for i, tok := range tokens {
		last := i == len(tokens)-1
		for _, f := range x.fields {
			exact := bleve.NewTermQuery(tok)
			exact.SetField(f.name)
			exact.SetBoost(f.weight * 2)
			clauses = append(clauses, exact)

			if dist := x.opts.editDistance(tok); dist > 0 {
				fz := bleve.NewFuzzyQuery(tok)
				fz.SetField(f.name)
				fz.SetFuzziness(dist)
				fz.SetBoost(f.weight)
				clauses = append(clauses, fz)
			}

			if last && len([]rune(tok)) >= 2 {
				prefix := bleve.NewPrefixQuery(tok)
				prefix.SetField(f.name)
				prefix.SetBoost(f.weight * 0.5)
				clauses = append(clauses, prefix)
			}
		}
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// tokens analyzes text exactly as indexed fields are analyzed
func (x *FuzzyIndex) tokens(text string) []string {
	analyzer := x.index.Mapping().AnalyzerNamed(standard.Name)
	if analyzer == nil {
		return strings.Fields(strings.ToLower(text))
	}
	stream := analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	seen := make(map[string]struct{}, len(stream))
	for _, t := range stream {
		term := string(t.Term)
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

// itemTitles implements fuzzy.Source over snapshot titles
type itemTitles []domain.SearchItem

func (t itemTitles) String(i int) string { return t[i].Title }
func (t itemTitles) Len() int            { return len(t) }

// searchTitles matches text as a character subsequence of titles. A match
// only counts when the matched characters sit close together: at most the
// query's edit distance of skipped characters inside the matched span.
func (x *FuzzyIndex) searchTitles(text string) []Hit {
	matches := fuzzy.FindFrom(text, itemTitles(x.items))
	if len(matches) == 0 {
		return nil
	}
	allowed := x.opts.editDistance(strings.ReplaceAll(text, " ", ""))
	kept := matches[:0]
	for _, m := range matches {
		if x.positions[x.items[m.Index].ID] != m.Index {
			continue
		}
		if skipped(m) > allowed {
			continue
		}
		kept = append(kept, m)
	}

	hits := make([]Hit, 0, len(kept))
	for rank, m := range kept {
		item := &x.items[m.Index]
		// subsequence hits always rank below any bleve hit
		score := 0.5 + 0.5*float64(rank+1)/float64(len(kept)+1)
		if score > x.opts.Threshold {
			break
		}
		hits = append(hits, Hit{Item: item, Position: m.Index, Score: score})
	}
	return hits
}

// skipped counts the unmatched runes between the first and last matched
// rune. MatchedIndexes are byte offsets into the title.
func skipped(m fuzzy.Match) int {
	if len(m.MatchedIndexes) == 0 {
		return 0
	}
	first := m.MatchedIndexes[0]
	last := m.MatchedIndexes[len(m.MatchedIndexes)-1]
	_, size := utf8.DecodeRuneInString(m.Str[last:])
	return utf8.RuneCountInString(m.Str[first:last+size]) - len(m.MatchedIndexes)
}

// Suggest returns distinct titles containing prefix as a subsequence
func (x *FuzzyIndex) Suggest(prefix string, limit int) []Suggestion {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit < 1 {
		return []Suggestion{}
	}

	matches := fuzzy.FindFrom(prefix, itemTitles(x.items))
	out := make([]Suggestion, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, m := range matches {
		item := &x.items[m.Index]
		key := strings.ToLower(item.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{
			Title:          item.Title,
			Slug:           item.Slug,
			ContentType:    item.ContentType,
			MatchedIndexes: m.MatchedIndexes,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}
