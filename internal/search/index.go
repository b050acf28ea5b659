package search

import (
	"context"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// Hit is one fuzzy match. Score lies in [0,1]; lower is a better match.
type Hit struct {
	Item     *domain.SearchItem
	Position int
	Score    float64
}

// Suggestion is a title completion candidate
type Suggestion struct {
	Title          string             `json:"title"`
	Slug           string             `json:"slug"`
	ContentType    domain.ContentType `json:"contentType"`
	MatchedIndexes []int              `json:"matchedIndexes,omitempty"`
}

// Index defines the text index consulted by the executor
type Index interface {
	// Search returns matches for text ordered best first, ties in snapshot order
	Search(ctx context.Context, text string) ([]Hit, error)

	// Suggest returns title completions for a partial query
	Suggest(prefix string, limit int) []Suggestion

	// Count returns the number of indexed items
	Count() int

	// Close releases the index
	Close() error
}

// Weights are the fixed per-field boosts
type Weights struct {
	Title       float64 `mapstructure:"title"`
	Description float64 `mapstructure:"description"`
	Excerpt     float64 `mapstructure:"excerpt"`
	Genres      float64 `mapstructure:"genres"`
	Hosts       float64 `mapstructure:"hosts"`
	Takeovers   float64 `mapstructure:"takeovers"`
	Locations   float64 `mapstructure:"locations"`
}

// DefaultWeights ranks title highest and locations lowest among facets
func DefaultWeights() Weights {
	return Weights{
		Title:       3.0,
		Description: 1.0,
		Excerpt:     0.8,
		Genres:      1.5,
		Hosts:       1.5,
		Takeovers:   1.5,
		Locations:   0.75,
	}
}

// FuzzinessAuto scales the edit distance with token length
const FuzzinessAuto = -1

// Options tunes a FuzzyIndex
type Options struct {
	Weights Weights
	// Fuzziness is the max edit distance per token, or FuzzinessAuto
	Fuzziness int
	// Threshold drops hits scoring above it (0 keeps only the best match, 1 keeps all)
	Threshold float64
	// QueryCacheSize bounds memoized query results; 0 disables memoization
	QueryCacheSize int
}

// DefaultOptions returns the production tuning
func DefaultOptions() Options {
	return Options{
		Weights:        DefaultWeights(),
		Fuzziness:      FuzzinessAuto,
		Threshold:      0.9,
		QueryCacheSize: 256,
	}
}

// editDistance picks the allowed edits for a token
func (o Options) editDistance(token string) int {
	if o.Fuzziness != FuzzinessAuto {
		if o.Fuzziness < 0 {
			return 0
		}
		if o.Fuzziness > 2 {
			return 2
		}
		return o.Fuzziness
	}
	n := len([]rune(token))
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
