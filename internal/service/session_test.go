package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airwaves-fm/stationsearch/internal/domain"
)

// gatedSearcher blocks searches for text "slow" until released
type gatedSearcher struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{release: make(chan struct{})}
}

func (g *gatedSearcher) Search(ctx context.Context, filters domain.SearchFilters, opts Options) *Response {
	g.mu.Lock()
	g.calls = append(g.calls, filters.Search)
	g.mu.Unlock()

	if filters.Search == "slow" {
		select {
		case <-g.release:
		case <-ctx.Done():
			return &Response{Query: "q=" + filters.Search, Error: msgCancelled}
		}
	}
	return &Response{Query: "q=" + filters.Search, Page: opts.Page}
}

func (g *gatedSearcher) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func TestSessionDiscardsStaleResult(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession(context.Background(), g, time.Millisecond, testLogger(t))
	defer s.Close()

	staleErr := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), domain.SearchFilters{Search: "slow"}, Options{Page: 1})
		staleErr <- err
	}()

	// wait until the slow search is in flight
	deadline := time.Now().Add(time.Second)
	for g.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow search never started")
		}
		time.Sleep(time.Millisecond)
	}

	resp, err := s.Search(context.Background(), domain.SearchFilters{Search: "fast"}, Options{Page: 1})
	if err != nil {
		t.Fatalf("latest search failed: %v", err)
	}
	if resp.Query != "q=fast" {
		t.Errorf("query = %s", resp.Query)
	}

	select {
	case err := <-staleErr:
		if !errors.Is(err, domain.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded search was not cancelled")
	}
}

func TestSessionSubmitDebounces(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession(context.Background(), g, 30*time.Millisecond, testLogger(t))
	defer s.Close()

	for _, q := range []string{"j", "ja", "jaz", "jazz"} {
		s.Submit(domain.SearchFilters{Search: q}, Options{Page: 1})
	}

	select {
	case res := <-s.Results():
		if res.Response.Query != "q=jazz" {
			t.Errorf("published %s, want the last submission", res.Response.Query)
		}
		if res.Seq != s.Seq() {
			t.Errorf("seq = %d, latest = %d", res.Seq, s.Seq())
		}
	case <-time.After(time.Second):
		t.Fatal("no result published")
	}

	if n := g.callCount(); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}
}

func TestSessionSubmitSupersedesInFlight(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession(context.Background(), g, time.Millisecond, testLogger(t))
	defer s.Close()

	s.Submit(domain.SearchFilters{Search: "slow"}, Options{Page: 1})
	deadline := time.Now().Add(time.Second)
	for g.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow search never started")
		}
		time.Sleep(time.Millisecond)
	}

	s.Submit(domain.SearchFilters{Search: "fast"}, Options{Page: 2})

	select {
	case res := <-s.Results():
		if res.Response.Query != "q=fast" || res.Options.Page != 2 {
			t.Errorf("unexpected result %+v", res.Response)
		}
	case <-time.After(time.Second):
		t.Fatal("no result published")
	}

	// the slow run was cancelled and must not publish
	select {
	case res, ok := <-s.Results():
		if ok {
			t.Errorf("stale result published: %+v", res.Response)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionClose(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession(context.Background(), g, time.Hour, testLogger(t))

	s.Submit(domain.SearchFilters{Search: "never"}, Options{Page: 1})
	s.Close()
	s.Close()

	if _, ok := <-s.Results(); ok {
		t.Error("results should be closed")
	}
	if _, err := s.Search(context.Background(), domain.SearchFilters{}, Options{}); !errors.Is(err, domain.ErrSuperseded) {
		t.Errorf("search after close = %v", err)
	}
	if g.callCount() != 0 {
		t.Error("pending submission should not run after close")
	}
}

func TestSessionWithEngine(t *testing.T) {
	svc := newTestService(t, jazzSource(), nil)
	s := NewSession(context.Background(), svc, 0, testLogger(t))
	defer s.Close()

	resp, err := s.Search(context.Background(), domain.SearchFilters{Genres: []string{"jazz"}}, Options{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d", resp.Total)
	}
}
