// Package search wires debounce, query and scroll into "type to filter,
// scroll for more" lists.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"steelpos/internal/debounce"
	"steelpos/internal/query"
	"steelpos/internal/scroll"

	"github.com/juju/clock"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseResults     Phase = "results"
	PhaseEmpty       Phase = "empty"
	PhaseLoadingMore Phase = "loading-more"
	PhaseExhausted   Phase = "exhausted"
)

type Page[T any] struct {
	Items []T
	Total int
}

type PageFunc[T any] func(ctx context.Context, term string, limit, offset int) (Page[T], error)

type Config[T any] struct {
	// Key is the cache prefix, e.g. {"products", "variants", "search"}.
	Key       query.Key
	Limit     int
	MinLength int
	Delay     time.Duration
	StaleTime time.Duration
	Clock     clock.Clock
	Load      PageFunc[T]
	// OnChange, when set, receives every new snapshot.
	OnChange func(Snapshot[T])
}

type Snapshot[T any] struct {
	Term    string
	Phase   Phase
	Results []T
	Total   int
	HasMore bool
	Err     error
}

type Search[T any] struct {
	cache     *query.Cache
	cfg       Config[T]
	debouncer *debounce.Debouncer[string]
	first     *query.Query[Page[T]]
	trigger   *scroll.Trigger
	ctx       context.Context
	cancel    context.CancelFunc

	mu        sync.Mutex
	gen       uint64
	term      string
	started   bool
	phase     Phase
	results   []T
	total     int
	exhausted bool
	err       error
	closed    bool
	inflight  int
	idle      chan struct{}
}

func New[T any](cache *query.Cache, cfg Config[T]) *Search[T] {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 1
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = query.DefaultStaleTime
	}

	opts := query.DefaultOptions()
	opts.StaleTime = cfg.StaleTime

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	s := &Search[T]{
		cache:  cache,
		cfg:    cfg,
		first:  query.New[Page[T]](cache, opts),
		ctx:    ctx,
		cancel: cancel,
		phase:  PhaseIdle,
		idle:   idle,
	}
	s.debouncer = debounce.New(cfg.Clock, cfg.Delay, s.apply)
	s.trigger = scroll.NewTrigger(s.LoadMore)
	return s
}

// SetTerm feeds raw input; the search runs once typing pauses.
func (s *Search[T]) SetTerm(raw string) {
	s.debouncer.Set(raw)
}

// Submit runs the search for raw immediately.
func (s *Search[T]) Submit(raw string) {
	s.debouncer.Set(raw)
	s.debouncer.Flush()
}

// Sentinel returns the observer for the last rendered row.
func (s *Search[T]) Sentinel() *scroll.Observer {
	return s.trigger.Attach()
}

func (s *Search[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Wait blocks until no page load is running.
func (s *Search[T]) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Search[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Stop()
	s.trigger.Close()
	s.first.Close()
	s.cancel()
}

// LoadMore appends the next page. It is a no-op unless the list has results
// and more pages exist.
func (s *Search[T]) LoadMore() {
	s.mu.Lock()
	if s.closed || s.phase != PhaseResults || s.exhausted {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseLoadingMore
	gen, term, offset := s.gen, s.term, len(s.results)
	s.begin()
	snap := s.snapshot()
	s.mu.Unlock()

	s.trigger.Update(true, true)
	s.changed(snap)

	go func() {
		defer s.end()
		key := s.pageKey(term, offset)
		data, _, err := s.cache.Fetch(s.ctx, key, s.cfg.StaleTime, func(ctx context.Context) (any, error) {
			return s.cfg.Load(ctx, term, s.cfg.Limit, offset)
		})

		s.mu.Lock()
		if s.closed || gen != s.gen {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.err = err
			s.phase = PhaseResults
		} else {
			page, _ := data.(Page[T])
			s.results = append(s.results, page.Items...)
			s.accept(page)
		}
		snap := s.snapshot()
		s.mu.Unlock()

		s.trigger.Update(snap.HasMore, false)
		s.changed(snap)
	}()
}

// Refetch drops the loaded pages of the current term and loads it again
// from the first page.
func (s *Search[T]) Refetch() {
	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return
	}
	term := s.term
	s.mu.Unlock()

	s.run(term, true)
}

// apply runs a new term. The same term again is a no-op unless its last
// load failed, in which case it is retried.
func (s *Search[T]) apply(raw string) {
	term := strings.TrimSpace(raw)

	s.mu.Lock()
	same := s.started && term == s.term
	if s.closed || (same && s.err == nil) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.run(term, same)
}

// run starts the first page of term. reload refetches a key the first-page
// query already points at.
func (s *Search[T]) run(term string, reload bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.gen++
	gen := s.gen
	s.term = term
	s.results = nil
	s.total = 0
	s.exhausted = false
	s.err = nil

	if len([]rune(term)) < s.cfg.MinLength {
		s.phase = PhaseIdle
		snap := s.snapshot()
		s.mu.Unlock()

		s.first.SetKey(s.firstKey(term), nil)
		s.trigger.Update(false, false)
		s.changed(snap)
		return
	}

	s.phase = PhaseLoading
	s.begin()
	snap := s.snapshot()
	s.mu.Unlock()

	s.trigger.Update(false, true)
	s.changed(snap)

	if reload {
		s.cache.Remove(s.firstKey(term))
		s.first.Refetch()
	} else {
		s.first.SetKey(s.firstKey(term), func(ctx context.Context) (Page[T], error) {
			return s.cfg.Load(ctx, term, s.cfg.Limit, 0)
		})
	}
	go s.awaitFirst(gen)
}

func (s *Search[T]) awaitFirst(gen uint64) {
	defer s.end()
	page, err := s.first.Get(s.ctx)

	s.mu.Lock()
	// A newer term owns the list now.
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.err = err
		s.phase = PhaseEmpty
		if len(page.Items) > 0 {
			s.results = append([]T(nil), page.Items...)
			s.accept(page)
		}
	} else {
		s.results = append([]T(nil), page.Items...)
		s.accept(page)
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.trigger.Update(snap.HasMore, false)
	s.changed(snap)
}

// accept must be called with s.mu held after page was added to results.
func (s *Search[T]) accept(page Page[T]) {
	s.total = page.Total
	s.exhausted = len(page.Items) < s.cfg.Limit || (page.Total > 0 && len(s.results) >= page.Total)
	switch {
	case len(s.results) == 0:
		s.phase = PhaseEmpty
	case s.exhausted:
		s.phase = PhaseExhausted
	default:
		s.phase = PhaseResults
	}
}

func (s *Search[T]) snapshot() Snapshot[T] {
	return Snapshot[T]{
		Term:    s.term,
		Phase:   s.phase,
		Results: append([]T(nil), s.results...),
		Total:   s.total,
		HasMore: len(s.results) > 0 && !s.exhausted,
		Err:     s.err,
	}
}

// begin must be called with s.mu held.
func (s *Search[T]) begin() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Search[T]) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

func (s *Search[T]) changed(snap Snapshot[T]) {
	if s.cfg.OnChange == nil {
		return
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.cfg.OnChange(snap)
	}
}

func (s *Search[T]) firstKey(term string) query.Key {
	key := append(query.Key{}, s.cfg.Key...)
	return append(key, term, s.cfg.Limit)
}

func (s *Search[T]) pageKey(term string, offset int) query.Key {
	return append(s.firstKey(term), offset)
}
