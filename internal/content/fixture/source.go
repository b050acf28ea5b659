// Package fixture serves content records from a local JSON file. It backs
// development servers and offline CLI runs.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/airwaves-fm/stationsearch/internal/content"
)

// File is the on-disk layout: one array of records per content type
type File struct {
	Episodes  []*content.EpisodeRecord  `json:"episodes"`
	Posts     []*content.PostRecord     `json:"posts"`
	Videos    []*content.VideoRecord    `json:"videos"`
	Hosts     []*content.HostRecord     `json:"hosts"`
	Takeovers []*content.TakeoverRecord `json:"takeovers"`
	Events    []*content.EventRecord    `json:"events,omitempty"`
}

// Source is a content.Source over a fixture file
type Source struct {
	path string
	mu   sync.RWMutex
	data *File
}

var (
	_ content.Source      = (*Source)(nil)
	_ content.EventSource = (*Source)(nil)
)

// Open loads the fixture at path
func Open(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// New serves an in-memory fixture
func New(data *File) *Source {
	if data == nil {
		data = &File{}
	}
	return &Source{data: data}
}

// Path returns the backing file, empty for in-memory fixtures
func (s *Source) Path() string {
	return s.path
}

// Reload re-reads the backing file. On error the previous data is kept.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	var data File
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode fixture %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.data = &data
	s.mu.Unlock()
	return nil
}

// FetchEpisodes returns episode records
func (s *Source) FetchEpisodes(ctx context.Context, q content.Query) ([]*content.EpisodeRecord, error) {
	return window(ctx, s.snapshot().Episodes, q)
}

// FetchPosts returns post records
func (s *Source) FetchPosts(ctx context.Context, q content.Query) ([]*content.PostRecord, error) {
	return window(ctx, s.snapshot().Posts, q)
}

// FetchVideos returns video records
func (s *Source) FetchVideos(ctx context.Context, q content.Query) ([]*content.VideoRecord, error) {
	return window(ctx, s.snapshot().Videos, q)
}

// FetchHosts returns host and series records
func (s *Source) FetchHosts(ctx context.Context, q content.Query) ([]*content.HostRecord, error) {
	return window(ctx, s.snapshot().Hosts, q)
}

// FetchTakeovers returns takeover records
func (s *Source) FetchTakeovers(ctx context.Context, q content.Query) ([]*content.TakeoverRecord, error) {
	return window(ctx, s.snapshot().Takeovers, q)
}

// FetchEvents returns event records
func (s *Source) FetchEvents(ctx context.Context, q content.Query) ([]*content.EventRecord, error) {
	return window(ctx, s.snapshot().Events, q)
}

func (s *Source) snapshot() *File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// window applies offset and limit, returning a copy
func window[T any](ctx context.Context, records []T, q content.Query) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := max(q.Offset, 0)
	if start >= len(records) {
		return []T{}, nil
	}
	end := len(records)
	if q.Limit > 0 {
		end = min(end, start+q.Limit)
	}
	out := make([]T, end-start)
	copy(out, records[start:end])
	return out, nil
}
