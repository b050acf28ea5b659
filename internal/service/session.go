package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// DefaultDebounce is the quiet period Submit waits for before searching
const DefaultDebounce = 250 * time.Millisecond

// Searcher runs one search pipeline
type Searcher interface {
	Search(ctx context.Context, filters domain.SearchFilters, opts Options) *Response
}

// Result is a published session outcome
type Result struct {
	Seq      uint64
	Filters  domain.SearchFilters
	Options  Options
	Response *Response
}

// Session tracks the searches of one client. Every new request takes the
// next sequence number and cancels the run in flight; a run that finishes
// after a newer request was issued is discarded.
type Session struct {
	ID string

	engine   Searcher
	debounce time.Duration
	ctx      context.Context
	stop     context.CancelFunc
	results  chan Result
	logger   *logger.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer
	closed bool
}

// NewSession creates a session bound to ctx. A non-positive debounce uses DefaultDebounce.
func NewSession(ctx context.Context, engine Searcher, debounce time.Duration, log *logger.Logger) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	sctx, stop := context.WithCancel(ctx)
	id := uuid.NewString()
	return &Session{
		ID:       id,
		engine:   engine,
		debounce: debounce,
		ctx:      sctx,
		stop:     stop,
		results:  make(chan Result, 1),
		logger:   log.WithComponent("search-session").WithSession(id),
	}
}

// Search runs immediately, superseding any pending or in-flight request.
// It returns domain.ErrSuperseded when a newer request was issued before it finished.
func (s *Session) Search(ctx context.Context, filters domain.SearchFilters, opts Options) (*Response, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrSuperseded
	}
	seq := s.next()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	resp := s.engine.Search(runCtx, filters, opts)
	if !s.latest(seq) {
		s.logger.Debug("Discarding superseded search", "seq", seq)
		return nil, domain.ErrSuperseded
	}
	return resp, nil
}

// Submit schedules a search after the debounce period. Only the latest
// submission runs, and its result is published on Results.
func (s *Session) Submit(filters domain.SearchFilters, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	seq := s.next()
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(seq, filters, opts)
	})
}

// Results delivers published results. Only the newest unread result is
// kept. The channel is closed by Close.
func (s *Session) Results() <-chan Result {
	return s.results
}

// Seq returns the latest issued sequence number
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close cancels pending and in-flight work and closes Results
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.halt()
	s.stop()
	close(s.results)
}

func (s *Session) run(seq uint64, filters domain.SearchFilters, opts Options) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	resp := s.engine.Search(runCtx, filters, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.logger.Debug("Discarding superseded search", "seq", seq)
		return
	}
	s.publish(Result{Seq: seq, Filters: filters, Options: opts, Response: resp})
}

// next must be called with mu held
func (s *Session) next() uint64 {
	s.halt()
	s.seq++
	return s.seq
}

// halt must be called with mu held
func (s *Session) halt() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) latest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && seq == s.seq
}

// publish replaces an unread result; mu must be held
func (s *Session) publish(r Result) {
	for {
		select {
		case s.results <- r:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}
